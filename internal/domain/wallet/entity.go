package wallet

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Reason classifies every coin movement
type Reason string

const (
	ReasonSpinGrant              Reason = "SPIN_GRANT"
	ReasonCheckoutRedeem         Reason = "CHECKOUT_REDEEM"
	ReasonCheckoutRedeemReversal Reason = "CHECKOUT_REDEEM_REVERSAL"
)

// Valid reports whether r is a known reason
func (r Reason) Valid() bool {
	switch r {
	case ReasonSpinGrant, ReasonCheckoutRedeem, ReasonCheckoutRedeemReversal:
		return true
	}
	return false
}

// Wallet holds a user's coin balance and spin counters.
// Balance only changes through ledger transactions.
type Wallet struct {
	UserID          uuid.UUID    `db:"user_id" json:"user_id"`
	Balance         int64        `db:"balance" json:"balance"`
	SpinsToday      int          `db:"spins_today" json:"spins_today"`
	SpinWindowStart sql.NullTime `db:"spin_window_start" json:"-"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// SpinsInWindow returns the spins counted in the window active at now
func (w *Wallet) SpinsInWindow(now time.Time, window time.Duration) int {
	if !w.SpinWindowStart.Valid || now.Sub(w.SpinWindowStart.Time) >= window {
		return 0
	}
	return w.SpinsToday
}

// Transaction is an immutable ledger entry. Amount is signed: credits are
// positive, debits negative.
type Transaction struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	UserID         uuid.UUID     `db:"user_id" json:"user_id"`
	Amount         int64         `db:"amount" json:"amount"`
	Reason         Reason        `db:"reason" json:"reason"`
	RelatedOrderID uuid.NullUUID `db:"related_order_id" json:"related_order_id"`
	BalanceAfter   int64         `db:"balance_after" json:"balance_after"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// Summary is the rewards view of a wallet
type Summary struct {
	Balance    int64 `json:"balance"`
	SpinsToday int   `json:"spins_today"`
	MaxSpins   int   `json:"max_spins"`
}
