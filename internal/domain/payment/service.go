package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shopverse/checkout-api/internal/domain/order"
	"github.com/shopverse/checkout-api/internal/pkg/database"
	"github.com/shopverse/checkout-api/internal/pkg/errorhandler"
	"github.com/shopverse/checkout-api/internal/pkg/logger"
	paymentpkg "github.com/shopverse/checkout-api/internal/pkg/payment"
)

// Razorpay caps receipts at 40 characters
const maxReceiptLen = 40

// Orders is the part of the order service payments settle against
type Orders interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error)
	LockForPaymentTx(ctx context.Context, tx database.Tx, userID, orderID uuid.UUID) (*order.Order, error)
	AttachGatewayOrderTx(ctx context.Context, tx database.Tx, orderID uuid.UUID, gatewayOrderID string) error
	ConfirmPaymentTx(ctx context.Context, tx database.Tx, orderID uuid.UUID) (*order.Order, error)
	MarkPaymentFailedTx(ctx context.Context, tx database.Tx, orderID uuid.UUID) (*order.Order, error)
}

// Service handles payment business logic
type Service struct {
	repo    Repository
	orders  Orders
	gateway paymentpkg.Gateway
	now     func() time.Time
}

// NewService creates payment service
func NewService(repo Repository, orders Orders, gateway paymentpkg.Gateway) *Service {
	return &Service{
		repo:    repo,
		orders:  orders,
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func receipt(orderID uuid.UUID) string {
	r := "order_rcpt_" + strings.ReplaceAll(orderID.String(), "-", "")
	if len(r) > maxReceiptLen {
		r = r[:maxReceiptLen]
	}
	return r
}

// CreateIntent opens a gateway order for the user's order. A pending payment
// that already has a gateway order is handed back instead of creating another.
// The order row stays locked across the gateway call so concurrent intents
// for the same order cannot both reach the gateway.
func (s *Service) CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*Intent, error) {
	var intent *Intent
	err := database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		o, err := s.orders.LockForPaymentTx(ctx, tx, userID, orderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == order.PaymentPaid {
			return ErrOrderAlreadyPaid
		}
		if !o.IsPayable() {
			return ErrOrderNotPayable
		}

		p, err := s.repo.GetByOrderIDTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if p != nil {
			switch p.Status {
			case StatusPaid:
				return ErrOrderAlreadyPaid
			case StatusPending:
				if p.GatewayOrderID != "" {
					intent = s.intent(p)
					return nil
				}
			}
		}

		resp, err := s.gateway.CreateOrder(ctx, paymentpkg.OrderRequest{
			Amount:   o.TotalAmount,
			Currency: o.Currency,
			Receipt:  receipt(o.ID),
			Metadata: map[string]string{
				"order_id": o.ID.String(),
				"user_id":  userID.String(),
			},
		})
		if err != nil {
			errorhandler.LogExternalServiceError(ctx, s.gateway.Name(), "create_order", err)
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}

		if p == nil {
			p = &Payment{
				ID:             uuid.New(),
				OrderID:        o.ID,
				UserID:         userID,
				Provider:       s.gateway.Name(),
				GatewayOrderID: resp.GatewayOrderID,
				Amount:         o.TotalAmount,
				Currency:       o.Currency,
				Status:         StatusPending,
			}
			if err := s.repo.CreateTx(ctx, tx, p); err != nil {
				return err
			}
		} else {
			p.GatewayOrderID = resp.GatewayOrderID
			p.Amount = o.TotalAmount
			p.Currency = o.Currency
			if err := s.repo.RestartTx(ctx, tx, p); err != nil {
				return err
			}
		}
		if err := s.orders.AttachGatewayOrderTx(ctx, tx, o.ID, resp.GatewayOrderID); err != nil {
			return err
		}
		intent = s.intent(p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "payment intent ready",
		"order_id", orderID.String(),
		"gateway_order_id", intent.GatewayOrderID,
	)
	return intent, nil
}

func (s *Service) intent(p *Payment) *Intent {
	return &Intent{
		OrderID:        p.OrderID,
		GatewayOrderID: p.GatewayOrderID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		GatewayKey:     s.gateway.KeyID(),
	}
}

// callback is a gateway success report. Zero ids skip the ownership checks.
type callback struct {
	orderID          uuid.UUID
	userID           uuid.UUID
	gatewayOrderID   string
	gatewayPaymentID string
	signature        string
}

// VerifyAndFinalize settles the order from the client's payment callback.
// Repeating a successful verification returns the same result without
// further side effects.
func (s *Service) VerifyAndFinalize(ctx context.Context, userID uuid.UUID, req *VerifyRequest) (*VerifyResult, error) {
	return s.finalize(ctx, callback{
		orderID:          req.OrderID,
		userID:           userID,
		gatewayOrderID:   req.GatewayOrderID,
		gatewayPaymentID: req.GatewayPaymentID,
		signature:        req.Signature,
	})
}

// FinalizeFromWebhook settles a payment the gateway reported as captured.
// It goes through the same signature check as a client callback.
func (s *Service) FinalizeFromWebhook(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*VerifyResult, error) {
	return s.finalize(ctx, callback{
		gatewayOrderID:   gatewayOrderID,
		gatewayPaymentID: gatewayPaymentID,
		signature:        s.gateway.SignPayment(gatewayOrderID, gatewayPaymentID),
	})
}

func (s *Service) finalize(ctx context.Context, cb callback) (*VerifyResult, error) {
	if !s.gateway.VerifyPaymentSignature(cb.gatewayOrderID, cb.gatewayPaymentID, cb.signature) {
		errorhandler.LogSecurityEvent(ctx, "payment_signature_mismatch", map[string]string{
			"order_id":           cb.orderID.String(),
			"gateway_order_id":   cb.gatewayOrderID,
			"gateway_payment_id": cb.gatewayPaymentID,
		})
		return nil, ErrInvalidSignature
	}

	var result *VerifyResult
	err := database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		p, err := s.repo.GetByGatewayOrderIDTx(ctx, tx, cb.gatewayOrderID)
		if err != nil {
			return err
		}
		if p == nil ||
			(cb.orderID != uuid.Nil && p.OrderID != cb.orderID) ||
			(cb.userID != uuid.Nil && p.UserID != cb.userID) {
			return order.ErrOrderNotFound
		}

		if p.GatewayOrderID != cb.gatewayOrderID {
			log.Error().
				Str("order_id", p.OrderID.String()).
				Str("captured_gateway_order_id", cb.gatewayOrderID).
				Str("current_gateway_order_id", p.GatewayOrderID).
				Str("gateway_payment_id", cb.gatewayPaymentID).
				Msg("payment captured on superseded gateway order")
		}

		if p.Status != StatusPaid {
			p.GatewayPaymentID = sql.NullString{String: cb.gatewayPaymentID, Valid: true}
			p.Signature = sql.NullString{String: cb.signature, Valid: true}
			p.VerifiedAt = sql.NullTime{Time: s.now(), Valid: true}
			if err := s.repo.MarkPaidTx(ctx, tx, p); err != nil {
				return err
			}
		} else if p.GatewayPaymentID.String != cb.gatewayPaymentID {
			log.Error().
				Str("order_id", p.OrderID.String()).
				Str("recorded_payment_id", p.GatewayPaymentID.String).
				Str("reported_payment_id", cb.gatewayPaymentID).
				Msg("second captured payment reported for paid order")
		}

		o, err := s.orders.ConfirmPaymentTx(ctx, tx, p.OrderID)
		if err != nil {
			return err
		}
		result = &VerifyResult{
			OrderID:       p.OrderID,
			PaymentStatus: StatusPaid,
			OrderStatus:   string(o.Status),
			Success:       true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkFailed records an explicit failure from the gateway. Coins redeemed
// for the order stay debited; the order can still be paid or cancelled.
func (s *Service) MarkFailed(ctx context.Context, gatewayOrderID, gatewayPaymentID, reason string) error {
	return database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		p, err := s.repo.GetByGatewayOrderIDTx(ctx, tx, gatewayOrderID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPaymentNotFound
		}
		if p.Status != StatusPending {
			return nil
		}
		if p.GatewayOrderID != gatewayOrderID {
			log.Info().
				Str("order_id", p.OrderID.String()).
				Str("gateway_order_id", gatewayOrderID).
				Msg("failure for superseded gateway order ignored")
			return nil
		}

		p.GatewayPaymentID = sql.NullString{String: gatewayPaymentID, Valid: gatewayPaymentID != ""}
		p.FailureReason = sql.NullString{String: reason, Valid: reason != ""}
		if err := s.repo.MarkFailedTx(ctx, tx, p); err != nil {
			return err
		}
		_, err = s.orders.MarkPaymentFailedTx(ctx, tx, p.OrderID)
		return err
	})
}

// HandleWebhook authenticates and applies a raw gateway webhook. Events for
// unknown payments are acknowledged so the gateway stops retrying them.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		errorhandler.LogSecurityEvent(ctx, "webhook_signature_mismatch", map[string]string{
			"provider": s.gateway.Name(),
		})
		return ErrInvalidSignature
	}

	ev, err := s.gateway.ParseWebhook(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	l := logger.FromContext(ctx).With().
		Str("provider", ev.Provider).
		Str("event", ev.EventType).
		Str("gateway_order_id", ev.GatewayOrderID).
		Logger()

	switch ev.Status {
	case paymentpkg.StatusCompleted:
		if ev.GatewayOrderID == "" || ev.GatewayPaymentID == "" {
			l.Info().Msg("webhook without payment reference skipped")
			return nil
		}
		_, err = s.FinalizeFromWebhook(ctx, ev.GatewayOrderID, ev.GatewayPaymentID)
	case paymentpkg.StatusFailed:
		if ev.GatewayOrderID == "" {
			l.Info().Msg("webhook without order reference skipped")
			return nil
		}
		err = s.MarkFailed(ctx, ev.GatewayOrderID, ev.GatewayPaymentID, ev.FailureReason)
	default:
		l.Debug().Msg("webhook event ignored")
		return nil
	}

	if errors.Is(err, order.ErrOrderNotFound) || errors.Is(err, ErrPaymentNotFound) {
		l.Warn().Msg("webhook for unknown payment acknowledged")
		return nil
	}
	if err != nil {
		return err
	}
	l.Info().Msg("webhook applied")
	return nil
}

// GetByOrder returns the payment state of the user's order
func (s *Service) GetByOrder(ctx context.Context, userID, orderID uuid.UUID) (*View, error) {
	if _, err := s.orders.Get(ctx, userID, orderID); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	return p.View(), nil
}
