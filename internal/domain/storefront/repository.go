package storefront

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/shopverse/checkout-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

// Repository reads carts and addresses
type Repository interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
	// GetAddress returns nil when the address does not exist or belongs to someone else
	GetAddress(ctx context.Context, userID, addressID uuid.UUID) (*Address, error)
	// ConsumeCartTx removes the ordered quantities from the cart. Lines added
	// or topped up after the cart was read stay behind.
	ConsumeCartTx(ctx context.Context, tx database.Tx, userID uuid.UUID, ordered []*CartItem) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	items := []*CartItem{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT p.id AS product_id, v.id AS variant_id, p.name AS product_name,
		       v.label AS variant_label, v.price AS unit_price,
		       ci.quantity, v.stock AS available_stock
		FROM cart_items ci
		JOIN product_variants v ON v.id = ci.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, ci.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &Cart{UserID: userID, Items: items}, nil
}

func (r *repository) GetAddress(ctx context.Context, userID, addressID uuid.UUID) (*Address, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a Address
	err := r.db.GetContext(ctx, &a, `
		SELECT id, user_id, full_name, phone, line1, COALESCE(line2, '') AS line2,
		       city, state, postal_code, country
		FROM addresses
		WHERE id = $1 AND user_id = $2
	`, addressID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load address: %w", err)
	}
	return &a, nil
}

func (r *repository) ConsumeCartTx(ctx context.Context, tx database.Tx, userID uuid.UUID, ordered []*CartItem) error {
	if len(ordered) == 0 {
		return nil
	}
	variants := make([]string, 0, len(ordered))
	quantities := make([]int64, 0, len(ordered))
	for _, it := range ordered {
		variants = append(variants, it.VariantID.String())
		quantities = append(quantities, int64(it.Quantity))
	}

	_, err := tx.ExecContext(ctx, `
		WITH ordered AS (
		    SELECT * FROM unnest($2::uuid[], $3::int[]) AS o(variant_id, quantity)
		), reduced AS (
		    UPDATE cart_items ci
		    SET quantity = ci.quantity - o.quantity
		    FROM ordered o
		    WHERE ci.user_id = $1 AND ci.variant_id = o.variant_id AND ci.quantity > o.quantity
		    RETURNING ci.id
		)
		DELETE FROM cart_items ci
		USING ordered o
		WHERE ci.user_id = $1 AND ci.variant_id = o.variant_id AND ci.quantity <= o.quantity
	`, userID, pq.Array(variants), pq.Array(quantities))
	if err != nil {
		return fmt.Errorf("consume cart: %w", err)
	}
	return nil
}
