package payment

import (
	"context"

	"github.com/shopverse/checkout-api/internal/pkg/razorpay"
)

// minorUnits converts whole currency units to the gateway's paise
const minorUnits = 100

// RazorpayProvider implements Gateway on the Razorpay client
type RazorpayProvider struct {
	client *razorpay.Client
}

func NewRazorpayProvider(cfg razorpay.Config) *RazorpayProvider {
	return &RazorpayProvider{client: razorpay.NewClient(cfg)}
}

func (p *RazorpayProvider) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	o, err := p.client.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   req.Amount * minorUnits,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return &OrderResponse{
		GatewayOrderID: o.ID,
		Amount:         o.Amount / minorUnits,
		Currency:       o.Currency,
	}, nil
}

func (p *RazorpayProvider) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return p.client.VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature)
}

func (p *RazorpayProvider) SignPayment(gatewayOrderID, gatewayPaymentID string) string {
	return p.client.SignPayment(gatewayOrderID, gatewayPaymentID)
}

func (p *RazorpayProvider) VerifyWebhookSignature(body []byte, signature string) bool {
	return p.client.VerifyWebhookSignature(body, signature)
}

func (p *RazorpayProvider) ParseWebhook(body []byte) (*WebhookEvent, error) {
	payload, err := razorpay.ParseWebhook(body)
	if err != nil {
		return nil, err
	}
	return &WebhookEvent{
		Provider:         ProviderRazorpay,
		EventType:        payload.Event,
		GatewayOrderID:   payload.GatewayOrderID(),
		GatewayPaymentID: payload.PaymentID(),
		Status:           MapStatus(payload.Event),
		FailureReason:    payload.FailureReason(),
	}, nil
}

func (p *RazorpayProvider) KeyID() string {
	return p.client.KeyID()
}

func (p *RazorpayProvider) Name() string {
	return ProviderRazorpay
}
