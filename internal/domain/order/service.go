package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shopverse/checkout-api/internal/domain/pricing"
	"github.com/shopverse/checkout-api/internal/domain/redemption"
	"github.com/shopverse/checkout-api/internal/domain/storefront"
	"github.com/shopverse/checkout-api/internal/domain/wallet"
	"github.com/shopverse/checkout-api/internal/pkg/database"
)

// Ledger is the wallet surface used while placing and cancelling orders
type Ledger interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
	DebitTx(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason wallet.Reason, orderID uuid.UUID) (*wallet.Transaction, error)
	ReverseTx(ctx context.Context, tx database.Tx, orderID uuid.UUID) (*wallet.Transaction, error)
}

// Redemptions exposes the pending checkout coins
type Redemptions interface {
	Applied(ctx context.Context, userID uuid.UUID) (*redemption.Redemption, error)
	Remove(ctx context.Context, userID uuid.UUID) error
}

type Service struct {
	repo        Repository
	store       storefront.Repository
	ledger      Ledger
	redemptions Redemptions
	rules       pricing.Rules
	currency    string
	now         func() time.Time
}

func NewService(repo Repository, store storefront.Repository, ledger Ledger, redemptions Redemptions, rules pricing.Rules, currency string) *Service {
	return &Service{
		repo:        repo,
		store:       store,
		ledger:      ledger,
		redemptions: redemptions,
		rules:       rules,
		currency:    currency,
		now:         time.Now,
	}
}

// CreateOrder turns the live cart into a PLACED order. The order insert,
// the coin debit and the removal of the ordered cart lines commit or roll
// back together.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*Order, error) {
	cart, err := s.store.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if out := cart.OutOfStock(); len(out) > 0 {
		names := make([]string, 0, len(out))
		for _, it := range out {
			names = append(names, it.ProductName)
		}
		return nil, &OutOfStockError{Products: names}
	}

	addr, err := s.store.GetAddress(ctx, userID, req.AddressID)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, ErrAddressNotFound
	}

	requested, err := s.requestedCoins(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	w, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	subtotal := cart.Subtotal()
	coins := s.rules.Clamp(requested, w.Balance, subtotal)
	quote := s.rules.Quote(cart.Lines(), coins)

	o := &Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           snapshotItems(cart),
		ShippingAddress: snapshotAddress(addr),
		Subtotal:        quote.Subtotal,
		DeliveryFee:     quote.DeliveryFee,
		CouponDiscount:  quote.CouponDiscount,
		Discount:        quote.CoinDiscount,
		CoinsApplied:    quote.CoinsApplied,
		TotalAmount:     quote.Total,
		Currency:        s.currency,
		Status:          StatusPlaced,
		PaymentStatus:   PaymentPending,
	}

	err = database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		if err := s.repo.CreateTx(ctx, tx, o); err != nil {
			return err
		}
		if o.CoinsApplied > 0 {
			if _, err := s.ledger.DebitTx(ctx, tx, userID, o.CoinsApplied, wallet.ReasonCheckoutRedeem, o.ID); err != nil {
				return err
			}
		}
		return s.store.ConsumeCartTx(ctx, tx, userID, cart.Items)
	})
	if err != nil {
		return nil, err
	}

	if err := s.redemptions.Remove(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to clear redemption marker")
	}

	log.Info().
		Str("order_id", o.ID.String()).
		Str("user_id", userID.String()).
		Int64("total", o.TotalAmount).
		Int64("coins", o.CoinsApplied).
		Msg("order placed")
	return o, nil
}

func (s *Service) requestedCoins(ctx context.Context, userID uuid.UUID, req *CreateRequest) (int64, error) {
	if req.CoinsApplied != nil {
		return *req.CoinsApplied, nil
	}
	applied, err := s.redemptions.Applied(ctx, userID)
	if err != nil {
		return 0, err
	}
	return applied.CoinsApplied, nil
}

// Get returns the user's order
func (s *Service) Get(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// List returns the user's orders, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Cancel cancels the user's own order and returns any redeemed coins
func (s *Service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	return s.transition(ctx, orderID, StatusCancelled, func(o *Order) bool { return o.UserID == userID })
}

// UpdateStatus moves an order along the fulfilment flow on behalf of an admin
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next Status) (*Order, error) {
	return s.transition(ctx, orderID, next, nil)
}

func (s *Service) transition(ctx context.Context, orderID uuid.UUID, next Status, visible func(*Order) bool) (*Order, error) {
	var o *Order
	err := database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		var err error
		o, err = s.repo.GetForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o == nil || (visible != nil && !visible(o)) {
			return ErrOrderNotFound
		}
		if !o.Status.CanTransitionTo(next) {
			return ErrInvalidTransition
		}

		prev := o.Status
		o.Status = next
		if next == StatusCancelled {
			now := s.now().UTC()
			o.CancelledAt = &now
		}
		if err := s.repo.UpdateStatusTx(ctx, tx, o); err != nil {
			return err
		}

		if next == StatusCancelled {
			if _, err := s.ledger.ReverseTx(ctx, tx, o.ID); err != nil {
				return err
			}
		}

		log.Info().
			Str("order_id", o.ID.String()).
			Str("from", string(prev)).
			Str("to", string(next)).
			Msg("order status changed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// LockForPaymentTx returns the order locked inside tx, or ErrOrderNotFound
// when it does not belong to userID
func (s *Service) LockForPaymentTx(ctx context.Context, tx database.Tx, userID, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetForUpdateTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// AttachGatewayOrderTx records the gateway's order id on the order
func (s *Service) AttachGatewayOrderTx(ctx context.Context, tx database.Tx, orderID uuid.UUID, gatewayOrderID string) error {
	return s.repo.SetGatewayOrderTx(ctx, tx, orderID, gatewayOrderID)
}

// ConfirmPaymentTx marks the order PAID and confirms it if still PLACED.
// It is a no-op for orders already marked PAID.
func (s *Service) ConfirmPaymentTx(ctx context.Context, tx database.Tx, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetForUpdateTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.PaymentStatus == PaymentPaid {
		return o, nil
	}

	o.PaymentStatus = PaymentPaid
	if o.Status == StatusPlaced {
		o.Status = StatusConfirmed
	} else {
		log.Warn().
			Str("order_id", o.ID.String()).
			Str("status", string(o.Status)).
			Msg("payment captured for order outside PLACED")
	}
	if err := s.repo.UpdatePaymentTx(ctx, tx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// MarkPaymentFailedTx records a failed payment. Redeemed coins stay
// debited until the order is cancelled.
func (s *Service) MarkPaymentFailedTx(ctx context.Context, tx database.Tx, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetForUpdateTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.PaymentStatus != PaymentPending {
		return o, nil
	}

	o.PaymentStatus = PaymentFailed
	if err := s.repo.UpdatePaymentTx(ctx, tx, o); err != nil {
		return nil, err
	}
	return o, nil
}
