package payment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents payment status
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// Payment is the gateway record for an order, one per order
type Payment struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	OrderID          uuid.UUID      `db:"order_id" json:"order_id"`
	UserID           uuid.UUID      `db:"user_id" json:"user_id"`
	Provider         string         `db:"provider" json:"provider"`
	GatewayOrderID   string         `db:"gateway_order_id" json:"gateway_order_id"`
	GatewayPaymentID sql.NullString `db:"gateway_payment_id" json:"-"`
	Signature        sql.NullString `db:"signature" json:"-"`
	Amount           int64          `db:"amount" json:"amount"`
	Currency         string         `db:"currency" json:"currency"`
	Status           Status         `db:"status" json:"status"`
	FailureReason    sql.NullString `db:"failure_reason" json:"-"`
	VerifiedAt       sql.NullTime   `db:"verified_at" json:"-"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// IsPaid checks if payment is completed
func (p *Payment) IsPaid() bool {
	return p.Status == StatusPaid
}

// View is the client-facing payment state
type View struct {
	OrderID          uuid.UUID  `json:"order_id"`
	Provider         string     `json:"provider"`
	GatewayOrderID   string     `json:"gateway_order_id"`
	GatewayPaymentID string     `json:"gateway_payment_id,omitempty"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Status           Status     `json:"status"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
}

func (p *Payment) View() *View {
	v := &View{
		OrderID:          p.OrderID,
		Provider:         p.Provider,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID.String,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		FailureReason:    p.FailureReason.String,
	}
	if p.VerifiedAt.Valid {
		t := p.VerifiedAt.Time
		v.VerifiedAt = &t
	}
	return v
}

// Intent is what the client checkout widget needs to open the gateway
type Intent struct {
	OrderID        uuid.UUID `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	GatewayKey     string    `json:"gateway_key"`
}

// VerifyRequest is the client callback after the gateway reports success
type VerifyRequest struct {
	OrderID          uuid.UUID `json:"order_id" validate:"required"`
	GatewayOrderID   string    `json:"gateway_order_id" validate:"required,gateway_id"`
	GatewayPaymentID string    `json:"gateway_payment_id" validate:"required,gateway_id"`
	Signature        string    `json:"signature" validate:"required,hexadecimal,max=128"`
}

// VerifyResult reports the settled order state
type VerifyResult struct {
	OrderID       uuid.UUID `json:"order_id"`
	PaymentStatus Status    `json:"payment_status"`
	OrderStatus   string    `json:"order_status"`
	Success       bool      `json:"success"`
}
