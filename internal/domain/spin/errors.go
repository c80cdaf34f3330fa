package spin

import (
	"errors"
	"time"
)

var (
	ErrSpinLimitReached  = errors.New("spin limit reached")
	ErrInvalidPrizeTable = errors.New("invalid prize table")
)

// LimitError carries when the user may spin again. RetryAfter is measured
// from the service clock at the time of the refused claim.
type LimitError struct {
	NextSpinAt time.Time
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return ErrSpinLimitReached.Error() + ", next spin at " + e.NextSpinAt.UTC().Format(time.RFC3339)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrSpinLimitReached
}
