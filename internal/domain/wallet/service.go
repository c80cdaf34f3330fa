package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shopverse/checkout-api/internal/pkg/database"
)

// SpinPolicy is what the wallet summary needs to report spin allowance
type SpinPolicy struct {
	MaxSpins int
	Window   time.Duration
}

// Service is the coin ledger. Every mutation appends a transaction and
// re-checks that the balance equals the ledger sum before committing.
type Service struct {
	repo  Repository
	spins SpinPolicy
	now   func() time.Time
}

func NewService(repo Repository, spins SpinPolicy) *Service {
	return &Service{repo: repo, spins: spins, now: time.Now}
}

// GetBalance returns the wallet, or a zero-state wallet for new users
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.GetWallet(ctx, userID)
}

// Summary returns balance and spin allowance for the rewards UI
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	w, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Balance:    w.Balance,
		SpinsToday: w.SpinsInWindow(s.now(), s.spins.Window),
		MaxSpins:   s.spins.MaxSpins,
	}, nil
}

// History lists ledger entries newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// EnsureTx creates the wallet row inside tx if it does not exist yet
func (s *Service) EnsureTx(ctx context.Context, tx database.Tx, userID uuid.UUID) error {
	return s.repo.Ensure(ctx, tx, userID)
}

// Credit adds coins in its own transaction
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int64, reason Reason) (*Transaction, error) {
	var t *Transaction
	err := database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		var err error
		t, err = s.CreditTx(ctx, tx, userID, amount, reason, uuid.Nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("reason", string(reason)).Msg("coins credited")
	return t, nil
}

// CreditTx adds coins inside tx. orderID may be uuid.Nil.
func (s *Service) CreditTx(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason Reason, orderID uuid.UUID) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !reason.Valid() {
		return nil, ErrInvalidReason
	}

	t, err := s.repo.Credit(ctx, tx, userID, amount, reason, nullable(orderID))
	if err != nil {
		return nil, err
	}
	if err := s.repo.CheckConsistency(ctx, tx, userID); err != nil {
		return nil, err
	}
	return t, nil
}

// Debit removes coins in its own transaction
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int64, reason Reason, orderID uuid.UUID) (*Transaction, error) {
	var t *Transaction
	err := database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		var err error
		t, err = s.DebitTx(ctx, tx, userID, amount, reason, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("reason", string(reason)).Msg("coins debited")
	return t, nil
}

// DebitTx removes coins inside tx, failing with ErrInsufficientBalance
// rather than going negative.
func (s *Service) DebitTx(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason Reason, orderID uuid.UUID) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !reason.Valid() {
		return nil, ErrInvalidReason
	}

	t, err := s.repo.Debit(ctx, tx, userID, amount, reason, nullable(orderID))
	if err != nil {
		return nil, err
	}
	if err := s.repo.CheckConsistency(ctx, tx, userID); err != nil {
		return nil, err
	}
	return t, nil
}

// Reverse credits back the checkout redemption for orderID in its own
// transaction. It returns nil when the order redeemed no coins, and the
// existing reversal when one was already made.
func (s *Service) Reverse(ctx context.Context, orderID uuid.UUID) (*Transaction, error) {
	var t *Transaction
	err := database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		var err error
		t, err = s.ReverseTx(ctx, tx, orderID)
		return err
	})
	if errors.Is(err, ErrDuplicateEntry) {
		// lost a race with another reversal that has since committed
		return s.existingReversal(ctx, orderID)
	}
	return t, err
}

// ReverseTx is Reverse inside a caller-owned transaction
func (s *Service) ReverseTx(ctx context.Context, tx database.Tx, orderID uuid.UUID) (*Transaction, error) {
	debit, err := s.repo.FindByOrder(ctx, tx, orderID, ReasonCheckoutRedeem, true)
	if err != nil {
		return nil, err
	}
	if debit == nil {
		return nil, nil
	}

	existing, err := s.repo.FindByOrder(ctx, tx, orderID, ReasonCheckoutRedeemReversal, false)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Debug().Str("order_id", orderID.String()).Msg("redemption already reversed")
		return existing, nil
	}

	t, err := s.repo.Credit(ctx, tx, debit.UserID, -debit.Amount, ReasonCheckoutRedeemReversal, nullable(orderID))
	if err != nil {
		return nil, err
	}
	if err := s.repo.CheckConsistency(ctx, tx, debit.UserID); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", debit.UserID.String()).
		Str("order_id", orderID.String()).
		Int64("amount", t.Amount).
		Msg("checkout redemption reversed")
	return t, nil
}

func (s *Service) existingReversal(ctx context.Context, orderID uuid.UUID) (*Transaction, error) {
	var t *Transaction
	err := database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		var err error
		t, err = s.repo.FindByOrder(ctx, tx, orderID, ReasonCheckoutRedeemReversal, false)
		return err
	})
	return t, err
}

func nullable(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
