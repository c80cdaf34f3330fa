package payment

import (
	"testing"

	"github.com/shopverse/checkout-api/internal/pkg/razorpay"
)

func TestMapStatus(t *testing.T) {
	tests := map[string]Status{
		"payment.captured": StatusCompleted,
		"ORDER.PAID":       StatusCompleted,
		"captured":         StatusCompleted,
		"payment.failed":   StatusFailed,
		"refund.created":   StatusPending,
		"":                 StatusPending,
	}
	for in, want := range tests {
		if got := MapStatus(in); got != want {
			t.Errorf("MapStatus(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewRazorpayProvider(razorpay.Config{KeyID: "rzp_test"}))

	g, err := r.Get(ProviderRazorpay)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if g.KeyID() != "rzp_test" {
		t.Fatalf("KeyID = %s", g.KeyID())
	}
	if _, err := r.Get("stripe"); err == nil {
		t.Fatal("expected unknown provider error")
	}
}

func TestRazorpayProviderParseWebhook(t *testing.T) {
	p := NewRazorpayProvider(razorpay.Config{})
	ev, err := p.ParseWebhook([]byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured"}}}}`))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if ev.Status != StatusCompleted || ev.GatewayOrderID != "order_1" || ev.GatewayPaymentID != "pay_1" || ev.Provider != ProviderRazorpay {
		t.Fatalf("unexpected event %+v", ev)
	}
}
