package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Tx is the transaction handle repositories run their statements on.
// *sqlx.Tx satisfies it.
type Tx interface {
	sqlx.ExtContext
	Commit() error
	Rollback() error
}

// Beginner opens transactions.
type Beginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// TxBeginner opens read-committed transactions on a pool.
type TxBeginner struct {
	db *sqlx.DB
}

func NewTxBeginner(db *sqlx.DB) *TxBeginner {
	return &TxBeginner{db: db}
}

func (b *TxBeginner) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := b.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// WithTx runs fn inside a transaction and commits when fn returns nil.
// Any error from fn rolls the whole unit back.
func WithTx(ctx context.Context, b Beginner, fn func(tx Tx) error) error {
	tx, err := b.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
