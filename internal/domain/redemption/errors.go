package redemption

import "errors"

var ErrInvalidCoins = errors.New("coins must not be negative")
