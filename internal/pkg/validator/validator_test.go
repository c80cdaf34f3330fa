package validator

import "testing"

type verifyInput struct {
	OrderID   string `json:"order_id" validate:"required,uuid"`
	PaymentID string `json:"razorpay_payment_id" validate:"required,gateway_id"`
	Coins     int64  `json:"coins" validate:"gte=0"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	errs := Validate(verifyInput{OrderID: "nope", PaymentID: "pay 1", Coins: -1})
	for _, field := range []string{"order_id", "razorpay_payment_id", "coins"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %#v", field, errs)
		}
	}
}

func TestValidatePasses(t *testing.T) {
	errs := Validate(verifyInput{
		OrderID:   "3f1c2d9e-8a7b-4c6d-9e0f-1a2b3c4d5e6f",
		PaymentID: "pay_29QQoUBi66xm2f",
	})
	if errs != nil {
		t.Fatalf("expected no errors, got %#v", errs)
	}
}
