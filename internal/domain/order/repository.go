package order

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

type Repository interface {
	database.Beginner
	CreateTx(ctx context.Context, tx database.Tx, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetForUpdateTx locks the order row for the rest of tx
	GetForUpdateTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error)
	UpdateStatusTx(ctx context.Context, tx database.Tx, o *Order) error
	UpdatePaymentTx(ctx context.Context, tx database.Tx, o *Order) error
	SetGatewayOrderTx(ctx context.Context, tx database.Tx, id uuid.UUID, gatewayOrderID string) error
}

type repository struct {
	*database.TxBeginner
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{TxBeginner: database.NewTxBeginner(db), db: db}
}

const orderColumns = `id, user_id, items, shipping_address, subtotal, delivery_fee, coupon_discount,
	discount, coins_applied, total_amount, currency, status, payment_status, gateway_order_id,
	cancelled_at, created_at, updated_at`

func (r *repository) CreateTx(ctx context.Context, tx database.Tx, o *Order) error {
	row := tx.QueryRowxContext(ctx, `
		INSERT INTO orders (id, user_id, items, shipping_address, subtotal, delivery_fee,
			coupon_discount, discount, coins_applied, total_amount, currency, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, o.ID, o.UserID, o.Items, o.ShippingAddress, o.Subtotal, o.DeliveryFee,
		o.CouponDiscount, o.Discount, o.CoinsApplied, o.TotalAmount, o.Currency,
		string(o.Status), string(o.PaymentStatus))
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var o Order
	err := r.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

func (r *repository) GetForUpdateTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*Order, error) {
	var o Order
	err := sqlx.GetContext(ctx, tx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return &o, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	orders := []*Order{}
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (r *repository) UpdateStatusTx(ctx context.Context, tx database.Tx, o *Order) error {
	err := sqlx.GetContext(ctx, tx, &o.UpdatedAt, `
		UPDATE orders
		SET status = $2, cancelled_at = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, o.ID, string(o.Status), o.CancelledAt)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *repository) UpdatePaymentTx(ctx context.Context, tx database.Tx, o *Order) error {
	err := sqlx.GetContext(ctx, tx, &o.UpdatedAt, `
		UPDATE orders
		SET payment_status = $2, status = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, o.ID, string(o.PaymentStatus), string(o.Status))
	if err != nil {
		return fmt.Errorf("update order payment: %w", err)
	}
	return nil
}

func (r *repository) SetGatewayOrderTx(ctx context.Context, tx database.Tx, id uuid.UUID, gatewayOrderID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders SET gateway_order_id = $2, updated_at = now() WHERE id = $1
	`, id, gatewayOrderID)
	if err != nil {
		return fmt.Errorf("set gateway order: %w", err)
	}
	return nil
}
