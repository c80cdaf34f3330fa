package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/domain/storefront"
)

// Status is the fulfilment state
type Status string

const (
	StatusPlaced         Status = "PLACED"
	StatusConfirmed      Status = "CONFIRMED"
	StatusShipped        Status = "SHIPPED"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

var nextStatus = map[Status]Status{
	StatusPlaced:         StatusConfirmed,
	StatusConfirmed:      StatusShipped,
	StatusShipped:        StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo allows one step forward, or cancellation before delivery
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return nextStatus[s] == next
}

// PaymentStatus tracks settlement. PAID is only set by payment verification.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Item is a line frozen at order time
type Item struct {
	ProductID    uuid.UUID `json:"product_id"`
	VariantID    uuid.UUID `json:"variant_id"`
	ProductName  string    `json:"product_name"`
	VariantLabel string    `json:"variant_label"`
	UnitPrice    int64     `json:"unit_price"`
	Quantity     int       `json:"quantity"`
	LineTotal    int64     `json:"line_total"`
}

// Items is stored as JSONB
type Items []Item

func (i Items) Value() (driver.Value, error) {
	return json.Marshal(i)
}

func (i *Items) Scan(src interface{}) error {
	return scanJSON(src, i)
}

// Address is the delivery address frozen at order time, stored as JSONB
type Address struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src interface{}) error {
	return scanJSON(src, a)
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case nil:
		return nil
	default:
		return fmt.Errorf("cannot scan %T into JSON column", src)
	}
}

func snapshotItems(cart *storefront.Cart) Items {
	items := make(Items, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, Item{
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			VariantLabel: it.VariantLabel,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
			LineTotal:    it.UnitPrice * int64(it.Quantity),
		})
	}
	return items
}

func snapshotAddress(a *storefront.Address) Address {
	return Address{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type Order struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	UserID          uuid.UUID     `db:"user_id" json:"user_id"`
	Items           Items         `db:"items" json:"items"`
	ShippingAddress Address       `db:"shipping_address" json:"shipping_address"`
	Subtotal        int64         `db:"subtotal" json:"subtotal"`
	DeliveryFee     int64         `db:"delivery_fee" json:"delivery_fee"`
	CouponDiscount  int64         `db:"coupon_discount" json:"coupon_discount"`
	Discount        int64         `db:"discount" json:"discount"`
	CoinsApplied    int64         `db:"coins_applied" json:"coins_applied"`
	TotalAmount     int64         `db:"total_amount" json:"total_amount"`
	Currency        string        `db:"currency" json:"currency"`
	Status          Status        `db:"status" json:"status"`
	PaymentStatus   PaymentStatus `db:"payment_status" json:"payment_status"`
	GatewayOrderID  *string       `db:"gateway_order_id" json:"gateway_order_id,omitempty"`
	CancelledAt     *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// IsPayable reports whether a payment may still be started for the order
func (o *Order) IsPayable() bool {
	return o.PaymentStatus != PaymentPaid && o.Status != StatusCancelled
}

// CreateRequest is the body of POST /orders. When CoinsApplied is omitted
// the pending checkout redemption is used.
type CreateRequest struct {
	AddressID    uuid.UUID `json:"address_id" validate:"required"`
	CoinsApplied *int64    `json:"coins_applied,omitempty" validate:"omitempty,gte=0"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,order_status"`
}
