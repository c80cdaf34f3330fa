package spin

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

// Repository claims spins against the wallet row's window counters
type Repository interface {
	database.Beginner
	// Claim consumes one spin if the window allows it. It returns nil when
	// the limit is reached.
	Claim(ctx context.Context, tx database.Tx, userID uuid.UUID, now time.Time, policy Policy) (*Claim, error)
	// Window reads the current counters, or nil when the wallet does not exist
	Window(ctx context.Context, tx database.Tx, userID uuid.UUID) (*Claim, error)
}

type repository struct {
	*database.TxBeginner
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{TxBeginner: database.NewTxBeginner(db)}
}

// Claim resets an expired window or increments an open one in a single
// conditional UPDATE. A policy with no spins never claims. Concurrent claims queue on the row lock and the
// predicate is re-checked once the lock is granted.
func (r *repository) Claim(ctx context.Context, tx database.Tx, userID uuid.UUID, now time.Time, policy Policy) (*Claim, error) {
	expiredBefore := now.Add(-policy.Window)

	var c Claim
	err := sqlx.GetContext(ctx, tx, &c, `
		UPDATE wallets
		SET spins_today = CASE
		        WHEN spin_window_start IS NULL OR spin_window_start <= $3 THEN 1
		        ELSE spins_today + 1
		    END,
		    spin_window_start = CASE
		        WHEN spin_window_start IS NULL OR spin_window_start <= $3 THEN $2
		        ELSE spin_window_start
		    END,
		    updated_at = now()
		WHERE user_id = $1
		  AND $4 > 0
		  AND (spin_window_start IS NULL OR spin_window_start <= $3 OR spins_today < $4)
		RETURNING spins_today, spin_window_start
	`, userID, now, expiredBefore, policy.MaxSpins)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim spin: %w", err)
	}
	return &c, nil
}

func (r *repository) Window(ctx context.Context, tx database.Tx, userID uuid.UUID) (*Claim, error) {
	var row struct {
		SpinsToday  int          `db:"spins_today"`
		WindowStart sql.NullTime `db:"spin_window_start"`
	}
	err := sqlx.GetContext(ctx, tx, &row, `SELECT spins_today, spin_window_start FROM wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read spin window: %w", err)
	}
	return &Claim{SpinsToday: row.SpinsToday, WindowStart: row.WindowStart.Time}, nil
}
