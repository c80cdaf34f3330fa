package wallet

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidReason       = errors.New("unknown transaction reason")
	ErrInsufficientBalance = errors.New("insufficient coin balance")
	ErrDuplicateEntry      = errors.New("ledger entry already exists for order")
	ErrLedgerInconsistent  = errors.New("wallet balance does not match ledger")
)
