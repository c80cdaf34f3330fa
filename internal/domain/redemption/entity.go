package redemption

import (
	"time"

	"github.com/shopverse/checkout-api/internal/domain/pricing"
	"github.com/shopverse/checkout-api/internal/domain/storefront"
)

// Marker is the pending coin redemption kept between checkout steps.
// No coins leave the wallet until the order is placed.
type Marker struct {
	CoinsApplied   int64     `json:"coins_applied"`
	DiscountAmount int64     `json:"discount_amount"`
	Subtotal       int64     `json:"subtotal"`
	AppliedAt      time.Time `json:"applied_at"`
}

// Redemption is the client view of the applied coins
type Redemption struct {
	CoinsApplied   int64 `json:"coins_applied"`
	DiscountAmount int64 `json:"discount_amount"`
}

// Summary is the live checkout quote
type Summary struct {
	Items   []*storefront.CartItem `json:"items"`
	Balance int64                  `json:"balance"`
	pricing.Quote
}
