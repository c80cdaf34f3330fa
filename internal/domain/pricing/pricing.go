// Package pricing computes checkout totals and the coin redemption cap.
// Amounts are whole currency units and coins are whole coins.
package pricing

import (
	"errors"
	"fmt"
)

const bpsDenominator = 10000

// Rules are the checkout pricing parameters
type Rules struct {
	FreeDeliveryThreshold int64
	FlatDeliveryFee       int64
	CoinsPerCurrencyUnit  int64
	// MaxCoinDiscountBps is the share of the subtotal coins may cover, in basis points
	MaxCoinDiscountBps int64
}

// DefaultRules returns the stock storefront configuration
func DefaultRules() Rules {
	return Rules{
		FreeDeliveryThreshold: 500,
		FlatDeliveryFee:       40,
		CoinsPerCurrencyUnit:  10,
		MaxCoinDiscountBps:    2000,
	}
}

var ErrInvalidRules = errors.New("invalid pricing rules")

func (r Rules) Validate() error {
	switch {
	case r.CoinsPerCurrencyUnit <= 0:
		return fmt.Errorf("%w: coins per currency unit must be positive", ErrInvalidRules)
	case r.MaxCoinDiscountBps < 0 || r.MaxCoinDiscountBps > bpsDenominator:
		return fmt.Errorf("%w: max coin discount must be within 0..%d bps", ErrInvalidRules, bpsDenominator)
	case r.FreeDeliveryThreshold < 0 || r.FlatDeliveryFee < 0:
		return fmt.Errorf("%w: delivery amounts must not be negative", ErrInvalidRules)
	}
	return nil
}

// Line is one priced cart line
type Line struct {
	UnitPrice int64
	Quantity  int
}

// Quote is a full checkout breakdown
type Quote struct {
	Subtotal       int64 `json:"subtotal"`
	DeliveryFee    int64 `json:"delivery_fee"`
	CouponDiscount int64 `json:"coupon_discount"`
	CoinsApplied   int64 `json:"coins_applied"`
	CoinDiscount   int64 `json:"coin_discount"`
	Total          int64 `json:"total"`
	MaxCoins       int64 `json:"max_coins"`
}

// Subtotal sums unit price times quantity
func Subtotal(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.UnitPrice * int64(l.Quantity)
	}
	return sum
}

// DeliveryFee is free strictly above the threshold
func (r Rules) DeliveryFee(subtotal int64) int64 {
	if subtotal > r.FreeDeliveryThreshold {
		return 0
	}
	return r.FlatDeliveryFee
}

// CoinDiscount converts coins to currency, rounding down
func (r Rules) CoinDiscount(coins int64) int64 {
	if coins <= 0 {
		return 0
	}
	return coins / r.CoinsPerCurrencyUnit
}

// MaxCoins is the largest redemption allowed against subtotal
func (r Rules) MaxCoins(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	return subtotal * r.MaxCoinDiscountBps * r.CoinsPerCurrencyUnit / bpsDenominator
}

// Clamp reduces a coin request to what the balance and cap allow
func (r Rules) Clamp(requested, balance, subtotal int64) int64 {
	coins := min(requested, balance, r.MaxCoins(subtotal))
	if coins < 0 {
		return 0
	}
	return coins
}

// Quote prices lines with coins already clamped by the caller.
// Coupons are not supported and always contribute zero.
func (r Rules) Quote(lines []Line, coins int64) Quote {
	subtotal := Subtotal(lines)
	q := Quote{
		Subtotal:     subtotal,
		DeliveryFee:  r.DeliveryFee(subtotal),
		CoinsApplied: max(coins, 0),
		MaxCoins:     r.MaxCoins(subtotal),
	}
	q.CoinDiscount = r.CoinDiscount(q.CoinsApplied)
	q.Total = max(0, q.Subtotal+q.DeliveryFee-q.CouponDiscount-q.CoinDiscount)
	return q
}
