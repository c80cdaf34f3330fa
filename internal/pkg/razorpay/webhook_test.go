package razorpay

import "testing"

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"event": "payment.failed",
		"payload": {
			"payment": {"entity": {"id": "pay_1", "order_id": "order_1", "amount": 5000, "status": "failed", "error_code": "BAD_REQUEST_ERROR", "error_description": "Card declined"}}
		},
		"created_at": 1700000000
	}`)

	p, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if p.Event != EventPaymentFailed || p.GatewayOrderID() != "order_1" || p.PaymentID() != "pay_1" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.FailureReason() != "Card declined" {
		t.Fatalf("FailureReason = %q", p.FailureReason())
	}
}

func TestParseWebhookOrderEntityFallback(t *testing.T) {
	p, err := ParseWebhook([]byte(`{"event":"order.paid","payload":{"order":{"entity":{"id":"order_9"}}}}`))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if p.GatewayOrderID() != "order_9" || p.PaymentID() != "" {
		t.Fatalf("unexpected ids %q %q", p.GatewayOrderID(), p.PaymentID())
	}
}

func TestParseWebhookRejectsGarbage(t *testing.T) {
	if _, err := ParseWebhook([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed body")
	}
	if _, err := ParseWebhook([]byte(`{}`)); err == nil {
		t.Fatal("expected error for missing event")
	}
}
