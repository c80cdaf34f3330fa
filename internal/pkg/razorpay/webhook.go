package razorpay

import (
	"encoding/json"
	"fmt"
)

// Webhook event names handled by the service
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// WebhookPayload is the envelope Razorpay posts to the webhook URL
type WebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity OrderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type OrderEntity struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// ParseWebhook decodes a webhook body. The signature must be checked first.
func ParseWebhook(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if p.Event == "" {
		return nil, fmt.Errorf("webhook event is required")
	}
	return &p, nil
}

// GatewayOrderID returns the order id from the payment entity, falling
// back to the order entity
func (p *WebhookPayload) GatewayOrderID() string {
	if p.Payload.Payment != nil && p.Payload.Payment.Entity.OrderID != "" {
		return p.Payload.Payment.Entity.OrderID
	}
	if p.Payload.Order != nil {
		return p.Payload.Order.Entity.ID
	}
	return ""
}

func (p *WebhookPayload) PaymentID() string {
	if p.Payload.Payment != nil {
		return p.Payload.Payment.Entity.ID
	}
	return ""
}

func (p *WebhookPayload) FailureReason() string {
	if p.Payload.Payment == nil {
		return ""
	}
	e := p.Payload.Payment.Entity
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	return e.ErrorCode
}
