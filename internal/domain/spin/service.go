package spin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shopverse/checkout-api/internal/domain/wallet"
	"github.com/shopverse/checkout-api/internal/pkg/database"
)

// Ledger is the part of the wallet service a spin needs
type Ledger interface {
	EnsureTx(ctx context.Context, tx database.Tx, userID uuid.UUID) error
	CreditTx(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason wallet.Reason, orderID uuid.UUID) (*wallet.Transaction, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
}

type Service struct {
	repo   Repository
	ledger Ledger
	prizes *Table
	drawer Drawer
	policy Policy
	now    func() time.Time
}

func NewService(repo Repository, ledger Ledger, prizes *Table, drawer Drawer, policy Policy) *Service {
	if drawer == nil {
		drawer = RandomDrawer
	}
	return &Service{
		repo:   repo,
		ledger: ledger,
		prizes: prizes,
		drawer: drawer,
		policy: policy,
		now:    time.Now,
	}
}

// Spin claims one spin, draws a prize and credits it, all in one
// transaction. It fails with a *LimitError once the window is used up.
func (s *Service) Spin(ctx context.Context, userID uuid.UUID) (*Result, error) {
	now := s.now().UTC()
	var result *Result

	err := database.WithTx(ctx, s.repo, func(tx database.Tx) error {
		if err := s.ledger.EnsureTx(ctx, tx, userID); err != nil {
			return err
		}

		claim, err := s.repo.Claim(ctx, tx, userID, now, s.policy)
		if err != nil {
			return err
		}
		if claim == nil {
			state, err := s.repo.Window(ctx, tx, userID)
			if err != nil {
				return err
			}
			next := now.Add(s.policy.Window)
			if state != nil && state.WindowStart.Add(s.policy.Window).After(now) {
				next = state.WindowStart.Add(s.policy.Window)
			}
			return &LimitError{NextSpinAt: next, RetryAfter: next.Sub(now)}
		}

		prize, err := s.prizes.Pick(s.drawer.Draw(s.prizes.TotalWeight()))
		if err != nil {
			return fmt.Errorf("pick prize: %w", err)
		}

		result = &Result{
			Label:      prize.Label,
			SpinsToday: claim.SpinsToday,
			MaxSpins:   s.policy.MaxSpins,
			NextSpinAt: claim.WindowStart.Add(s.policy.Window),
		}
		if prize.CoinValue > 0 {
			t, err := s.ledger.CreditTx(ctx, tx, userID, prize.CoinValue, wallet.ReasonSpinGrant, uuid.Nil)
			if err != nil {
				return err
			}
			result.CoinsWon = prize.CoinValue
			result.Balance = t.BalanceAfter
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.CoinsWon == 0 {
		if w, err := s.ledger.GetBalance(ctx, userID); err == nil {
			result.Balance = w.Balance
		}
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("prize", result.Label).
		Int64("coins", result.CoinsWon).
		Int("spins_today", result.SpinsToday).
		Msg("spin completed")
	return result, nil
}

// Status reports how many spins remain in the current window
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	w, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	used := w.SpinsInWindow(now, s.policy.Window)
	st := &Status{
		SpinsToday: used,
		MaxSpins:   s.policy.MaxSpins,
		CanSpin:    used < s.policy.MaxSpins,
	}
	if !st.CanSpin && w.SpinWindowStart.Valid {
		next := w.SpinWindowStart.Time.Add(s.policy.Window)
		st.NextSpinAt = &next
	}
	return st, nil
}

// Prizes lists the wheel segments
func (s *Service) Prizes() []Prize {
	return s.prizes.Prizes()
}
