// Package storefront reads the cart and address records owned by the
// catalogue and profile services. Checkout never writes them except to
// empty the cart once an order is placed.
package storefront

import (
	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/domain/pricing"
)

// CartItem is a cart line joined with its live variant price and stock
type CartItem struct {
	ProductID      uuid.UUID `db:"product_id" json:"product_id"`
	VariantID      uuid.UUID `db:"variant_id" json:"variant_id"`
	ProductName    string    `db:"product_name" json:"product_name"`
	VariantLabel   string    `db:"variant_label" json:"variant_label"`
	UnitPrice      int64     `db:"unit_price" json:"unit_price"`
	Quantity       int       `db:"quantity" json:"quantity"`
	AvailableStock int       `db:"available_stock" json:"-"`
}

type Cart struct {
	UserID uuid.UUID   `json:"user_id"`
	Items  []*CartItem `json:"items"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Lines converts the cart for pricing
func (c *Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return lines
}

// Subtotal is the live cart subtotal
func (c *Cart) Subtotal() int64 {
	return pricing.Subtotal(c.Lines())
}

// OutOfStock returns the items whose quantity exceeds available stock
func (c *Cart) OutOfStock() []*CartItem {
	var out []*CartItem
	for _, it := range c.Items {
		if it.Quantity > it.AvailableStock {
			out = append(out, it)
		}
	}
	return out
}

type Address struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"-"`
	FullName   string    `db:"full_name" json:"full_name"`
	Phone      string    `db:"phone" json:"phone"`
	Line1      string    `db:"line1" json:"line1"`
	Line2      string    `db:"line2" json:"line2,omitempty"`
	City       string    `db:"city" json:"city"`
	State      string    `db:"state" json:"state"`
	PostalCode string    `db:"postal_code" json:"postal_code"`
	Country    string    `db:"country" json:"country"`
}
