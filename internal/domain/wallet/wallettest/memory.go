// Package wallettest provides an in-memory wallet.Repository for tests in
// packages that drive the ledger inside their own transactions.
package wallettest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/domain/wallet"
	"github.com/shopverse/checkout-api/internal/pkg/database"
	"github.com/shopverse/checkout-api/internal/pkg/database/txtest"
)

// Repository is an in-memory ledger. Mutations register undo hooks on
// the txtest transaction they run in, so a rollback from any caller
// restores the previous state.
type Repository struct {
	txtest.Locker

	mu      sync.Mutex
	wallets map[uuid.UUID]*wallet.Wallet
	txs     []*wallet.Transaction
	skew    int64
}

var _ wallet.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{wallets: map[uuid.UUID]*wallet.Wallet{}}
}

func onRollback(tx database.Tx, fn func()) {
	if h := txtest.Hooks(tx); h != nil {
		h.OnRollback(fn)
	}
}

func (m *Repository) GetWallet(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wallets[userID]; ok {
		cp := *w
		return &cp, nil
	}
	return &wallet.Wallet{UserID: userID}, nil
}

func (m *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*wallet.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*wallet.Transaction
	for _, t := range m.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset >= total {
		return []*wallet.Transaction{}, total, nil
	}
	end := min(offset+limit, total)
	return out[offset:end], total, nil
}

func (m *Repository) Ensure(ctx context.Context, tx database.Tx, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLocked(tx, userID)
	return nil
}

func (m *Repository) ensureLocked(tx database.Tx, userID uuid.UUID) *wallet.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		w = &wallet.Wallet{UserID: userID, CreatedAt: time.Now()}
		m.wallets[userID] = w
		onRollback(tx, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.wallets, userID)
		})
	}
	return w
}

func (m *Repository) Credit(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason wallet.Reason, orderID uuid.NullUUID) (*wallet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.ensureLocked(tx, userID)
	return m.applyLocked(tx, w, amount, reason, orderID)
}

func (m *Repository) Debit(ctx context.Context, tx database.Tx, userID uuid.UUID, amount int64, reason wallet.Reason, orderID uuid.NullUUID) (*wallet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.ensureLocked(tx, userID)
	if w.Balance < amount {
		return nil, wallet.ErrInsufficientBalance
	}
	return m.applyLocked(tx, w, -amount, reason, orderID)
}

func (m *Repository) applyLocked(tx database.Tx, w *wallet.Wallet, amount int64, reason wallet.Reason, orderID uuid.NullUUID) (*wallet.Transaction, error) {
	if orderID.Valid {
		for _, t := range m.txs {
			if t.RelatedOrderID == orderID && t.Reason == reason {
				return nil, wallet.ErrDuplicateEntry
			}
		}
	}

	w.Balance += amount
	t := &wallet.Transaction{
		ID:             uuid.New(),
		UserID:         w.UserID,
		Amount:         amount,
		Reason:         reason,
		RelatedOrderID: orderID,
		BalanceAfter:   w.Balance,
		CreatedAt:      time.Now(),
	}
	m.txs = append(m.txs, t)

	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		w.Balance -= amount
		for i, e := range m.txs {
			if e.ID == t.ID {
				m.txs = append(m.txs[:i], m.txs[i+1:]...)
				break
			}
		}
	})
	return t, nil
}

func (m *Repository) FindByOrder(ctx context.Context, tx database.Tx, orderID uuid.UUID, reason wallet.Reason, forUpdate bool) (*wallet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.RelatedOrderID.Valid && t.RelatedOrderID.UUID == orderID && t.Reason == reason {
			return t, nil
		}
	}
	return nil, nil
}

func (m *Repository) CheckConsistency(ctx context.Context, tx database.Tx, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var balance int64
	if w, ok := m.wallets[userID]; ok {
		balance = w.Balance
	}
	if balance+m.skew != m.sumLocked(userID) {
		return wallet.ErrLedgerInconsistent
	}
	return nil
}

// LedgerSum adds up every entry for userID
func (m *Repository) LedgerSum(userID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumLocked(userID)
}

func (m *Repository) sumLocked(userID uuid.UUID) int64 {
	var sum int64
	for _, t := range m.txs {
		if t.UserID == userID {
			sum += t.Amount
		}
	}
	return sum
}

// Entries returns a copy of the ledger for userID, oldest first
func (m *Repository) Entries(userID uuid.UUID) []wallet.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []wallet.Transaction
	for _, t := range m.txs {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out
}

// SetWallet overwrites a wallet row directly, bypassing the ledger
func (m *Repository) SetWallet(w wallet.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[w.UserID] = &w
}

// SetSkew offsets the balance seen by CheckConsistency to simulate drift
func (m *Repository) SetSkew(v int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skew = v
}
