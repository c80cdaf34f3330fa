package redemption

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shopverse/checkout-api/internal/domain/pricing"
	"github.com/shopverse/checkout-api/internal/domain/storefront"
	"github.com/shopverse/checkout-api/internal/domain/wallet"
)

type Carts interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*storefront.Cart, error)
}

type Balances interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
}

// Service manages the coins a user intends to redeem on the next order
type Service struct {
	store    Store
	carts    Carts
	balances Balances
	rules    pricing.Rules
	now      func() time.Time
}

func NewService(store Store, carts Carts, balances Balances, rules pricing.Rules) *Service {
	return &Service{
		store:    store,
		carts:    carts,
		balances: balances,
		rules:    rules,
		now:      time.Now,
	}
}

// Apply records a redemption against the live cart. Requests above the
// balance or the subtotal cap are reduced rather than rejected.
func (s *Service) Apply(ctx context.Context, userID uuid.UUID, requested int64) (*Redemption, error) {
	if requested < 0 {
		return nil, ErrInvalidCoins
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	w, err := s.balances.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, userID); err != nil {
		return nil, err
	}

	subtotal := cart.Subtotal()
	coins := s.rules.Clamp(requested, w.Balance, subtotal)
	result := &Redemption{CoinsApplied: coins, DiscountAmount: s.rules.CoinDiscount(coins)}
	if coins == 0 {
		return result, nil
	}

	err = s.store.Set(ctx, userID, &Marker{
		CoinsApplied:   result.CoinsApplied,
		DiscountAmount: result.DiscountAmount,
		Subtotal:       subtotal,
		AppliedAt:      s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if coins < requested {
		log.Debug().
			Str("user_id", userID.String()).
			Int64("requested", requested).
			Int64("applied", coins).
			Msg("coin redemption clamped")
	}
	return result, nil
}

// Remove drops any pending redemption
func (s *Service) Remove(ctx context.Context, userID uuid.UUID) error {
	return s.store.Delete(ctx, userID)
}

// Applied returns the pending redemption, zero when none is set
func (s *Service) Applied(ctx context.Context, userID uuid.UUID) (*Redemption, error) {
	m, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &Redemption{}, nil
	}
	return &Redemption{CoinsApplied: m.CoinsApplied, DiscountAmount: m.DiscountAmount}, nil
}

// Summary prices the live cart with the pending coins re-clamped to the
// current balance and subtotal
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	w, err := s.balances.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	applied, err := s.Applied(ctx, userID)
	if err != nil {
		return nil, err
	}

	coins := s.rules.Clamp(applied.CoinsApplied, w.Balance, cart.Subtotal())
	return &Summary{
		Items:   cart.Items,
		Balance: w.Balance,
		Quote:   s.rules.Quote(cart.Lines(), coins),
	}, nil
}
