package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shopverse/checkout-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

// Repository defines payment data access
type Repository interface {
	database.Beginner
	CreateTx(ctx context.Context, tx database.Tx, p *Payment) error
	// RestartTx points a failed payment at a new gateway order and resets it
	// to PENDING. The replaced gateway order id stays resolvable.
	RestartTx(ctx context.Context, tx database.Tx, p *Payment) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Payment, error)
	GetByOrderIDTx(ctx context.Context, tx database.Tx, orderID uuid.UUID) (*Payment, error)
	// GetByGatewayOrderIDTx locks the payment row for the rest of tx. It also
	// matches gateway orders the payment was restarted away from.
	GetByGatewayOrderIDTx(ctx context.Context, tx database.Tx, gatewayOrderID string) (*Payment, error)
	MarkPaidTx(ctx context.Context, tx database.Tx, p *Payment) error
	MarkFailedTx(ctx context.Context, tx database.Tx, p *Payment) error
}

type repository struct {
	*database.TxBeginner
	db *sqlx.DB
}

// NewRepository creates payment repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{TxBeginner: database.NewTxBeginner(db), db: db}
}

const paymentColumns = `id, order_id, user_id, provider, gateway_order_id, gateway_payment_id, signature,
	amount, currency, status, failure_reason, verified_at, created_at, updated_at`

func (r *repository) CreateTx(ctx context.Context, tx database.Tx, p *Payment) error {
	row := tx.QueryRowxContext(ctx, `
		INSERT INTO payments (id, order_id, user_id, provider, gateway_order_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.OrderID, p.UserID, p.Provider, p.GatewayOrderID, p.Amount, p.Currency, string(p.Status))
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *repository) RestartTx(ctx context.Context, tx database.Tx, p *Payment) error {
	err := sqlx.GetContext(ctx, tx, &p.UpdatedAt, `
		WITH superseded AS (
		    INSERT INTO payment_gateway_orders (gateway_order_id, payment_id)
		    SELECT gateway_order_id, id FROM payments WHERE id = $1 AND status = 'FAILED'
		    ON CONFLICT (gateway_order_id) DO NOTHING
		)
		UPDATE payments
		SET gateway_order_id = $2, amount = $3, currency = $4, status = 'PENDING',
		    gateway_payment_id = NULL, signature = NULL, failure_reason = NULL, updated_at = now()
		WHERE id = $1 AND status = 'FAILED'
		RETURNING updated_at
	`, p.ID, p.GatewayOrderID, p.Amount, p.Currency)
	if err != nil {
		return fmt.Errorf("restart payment: %w", err)
	}
	p.Status = StatusPending
	p.GatewayPaymentID = sql.NullString{}
	p.Signature = sql.NullString{}
	p.FailureReason = sql.NullString{}
	return nil
}

func (r *repository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return r.get(ctx, r.db, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
}

func (r *repository) GetByOrderIDTx(ctx context.Context, tx database.Tx, orderID uuid.UUID) (*Payment, error) {
	return r.get(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 FOR UPDATE`, orderID)
}

func (r *repository) GetByGatewayOrderIDTx(ctx context.Context, tx database.Tx, gatewayOrderID string) (*Payment, error) {
	return r.get(ctx, tx, `SELECT `+paymentColumns+` FROM payments
		WHERE gateway_order_id = $1
		   OR id = (SELECT payment_id FROM payment_gateway_orders WHERE gateway_order_id = $1)
		FOR UPDATE`, gatewayOrderID)
}

func (r *repository) get(ctx context.Context, q sqlx.QueryerContext, query string, arg interface{}) (*Payment, error) {
	var p Payment
	err := sqlx.GetContext(ctx, q, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

func (r *repository) MarkPaidTx(ctx context.Context, tx database.Tx, p *Payment) error {
	err := sqlx.GetContext(ctx, tx, &p.UpdatedAt, `
		UPDATE payments
		SET status = 'PAID', gateway_payment_id = $2, signature = $3, verified_at = $4,
		    failure_reason = NULL, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.GatewayPaymentID, p.Signature, p.VerifiedAt)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	p.Status = StatusPaid
	return nil
}

func (r *repository) MarkFailedTx(ctx context.Context, tx database.Tx, p *Payment) error {
	err := sqlx.GetContext(ctx, tx, &p.UpdatedAt, `
		UPDATE payments
		SET status = 'FAILED', gateway_payment_id = $2, failure_reason = $3, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING updated_at
	`, p.ID, p.GatewayPaymentID, p.FailureReason)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	p.Status = StatusFailed
	return nil
}
