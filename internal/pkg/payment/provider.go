package payment

import (
	"context"
	"fmt"
	"strings"
)

// Provider constants
const (
	ProviderRazorpay = "razorpay"
)

// Gateway is what the checkout needs from a payment provider
type Gateway interface {
	// CreateOrder opens a remote order the client pays against
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)

	// VerifyPaymentSignature checks the signature returned to the client after payment
	VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool

	// SignPayment produces the callback signature for a payment confirmed by webhook
	SignPayment(gatewayOrderID, gatewayPaymentID string) string

	// VerifyWebhookSignature validates a raw webhook body
	VerifyWebhookSignature(body []byte, signature string) bool

	// ParseWebhook converts a provider webhook into a WebhookEvent
	ParseWebhook(body []byte) (*WebhookEvent, error)

	// KeyID is the public key the client checkout widget needs
	KeyID() string

	// Name returns the provider identifier
	Name() string
}

// OrderRequest is a provider-neutral remote order request.
// Amount is in whole currency units.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Metadata map[string]string
}

type OrderResponse struct {
	GatewayOrderID string
	Amount         int64
	Currency       string
}

// WebhookEvent is a standardized webhook event
type WebhookEvent struct {
	Provider         string
	EventType        string
	GatewayOrderID   string
	GatewayPaymentID string
	Status           Status
	FailureReason    string
}

// Status is the standardized outcome of a webhook event
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Registry holds configured gateways by name
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func (r *Registry) Register(g Gateway) {
	r.gateways[g.Name()] = g
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("payment provider '%s' not found", name)
	}
	return g, nil
}

// MapStatus converts a provider status or event name to a Status.
// Unknown values map to pending.
func MapStatus(providerStatus string) Status {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "captured", "paid", "payment.captured", "order.paid":
		return StatusCompleted
	case "failed", "payment.failed":
		return StatusFailed
	default:
		return StatusPending
	}
}
