package wallet

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

// Repository is the ledger's storage. Mutations run on a caller-owned
// transaction so they can join a wider unit of work.
type Repository interface {
	database.Beginner
	GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int, error)

	Ensure(ctx context.Context, tx database.Tx, userID uuid.UUID) error
	Credit(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason Reason, orderID uuid.NullUUID) (*Transaction, error)
	Debit(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason Reason, orderID uuid.NullUUID) (*Transaction, error)
	FindByOrder(ctx context.Context, tx database.Tx, orderID uuid.UUID, reason Reason, forUpdate bool) (*Transaction, error)
	CheckConsistency(ctx context.Context, tx database.Tx, userID uuid.UUID) error
}

type repository struct {
	*database.TxBeginner
	db *sqlx.DB
}

// NewRepository creates the PostgreSQL ledger repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{TxBeginner: database.NewTxBeginner(db), db: db}
}

const walletColumns = `user_id, balance, spins_today, spin_window_start, created_at, updated_at`

const transactionColumns = `id, user_id, amount, reason, related_order_id, balance_after, created_at`

func (r *repository) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var w Wallet
	err := r.db.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Wallet{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM coin_transactions WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	txs := []*Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+transactionColumns+`
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txs, total, nil
}

func (r *repository) Ensure(ctx context.Context, tx database.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance, spins_today)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	return nil
}

func (r *repository) Credit(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason Reason, orderID uuid.NullUUID) (*Transaction, error) {
	if err := r.Ensure(ctx, tx, userID); err != nil {
		return nil, err
	}

	var balance int64
	err := sqlx.GetContext(ctx, tx, &balance, `
		UPDATE wallets
		SET balance = balance + $2, updated_at = now()
		WHERE user_id = $1
		RETURNING balance
	`, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("credit wallet: %w", err)
	}

	return r.insertTransaction(ctx, tx, userID, amount, reason, orderID, balance)
}

// Debit only succeeds when the balance covers amount; the conditional update
// holds the row lock so concurrent debits cannot overdraw.
func (r *repository) Debit(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason Reason, orderID uuid.NullUUID) (*Transaction, error) {
	if err := r.Ensure(ctx, tx, userID); err != nil {
		return nil, err
	}

	var balance int64
	err := sqlx.GetContext(ctx, tx, &balance, `
		UPDATE wallets
		SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`, userID, amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, fmt.Errorf("debit wallet: %w", err)
	}

	return r.insertTransaction(ctx, tx, userID, -amount, reason, orderID, balance)
}

func (r *repository) insertTransaction(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason Reason, orderID uuid.NullUUID, balanceAfter int64) (*Transaction, error) {
	t := &Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		Amount:         amount,
		Reason:         reason,
		RelatedOrderID: orderID,
		BalanceAfter:   balanceAfter,
	}

	err := sqlx.GetContext(ctx, tx, &t.CreatedAt, `
		INSERT INTO coin_transactions (id, user_id, amount, reason, related_order_id, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.UserID, t.Amount, string(t.Reason), t.RelatedOrderID, t.BalanceAfter)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

// FindByOrder returns the entry with reason for orderID, or nil when none exists
func (r *repository) FindByOrder(ctx context.Context, tx database.Tx, orderID uuid.UUID, reason Reason, forUpdate bool) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM coin_transactions WHERE related_order_id = $1 AND reason = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var t Transaction
	err := sqlx.GetContext(ctx, tx, &t, query, orderID, string(reason))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction by order: %w", err)
	}
	return &t, nil
}

// CheckConsistency verifies balance == SUM(amount) for the user inside tx
func (r *repository) CheckConsistency(ctx context.Context, tx database.Tx, userID uuid.UUID) error {
	var row struct {
		Balance int64 `db:"balance"`
		Total   int64 `db:"total"`
	}
	err := sqlx.GetContext(ctx, tx, &row, `
		SELECT w.balance,
		       COALESCE((SELECT SUM(t.amount) FROM coin_transactions t WHERE t.user_id = w.user_id), 0) AS total
		FROM wallets w
		WHERE w.user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("check ledger: %w", err)
	}
	if row.Balance != row.Total {
		return fmt.Errorf("%w: balance %d, ledger sum %d", ErrLedgerInconsistent, row.Balance, row.Total)
	}
	return nil
}
