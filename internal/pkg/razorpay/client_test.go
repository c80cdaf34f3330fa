package razorpay

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubOrders struct {
	data  map[string]interface{}
	resp  map[string]interface{}
	err   error
	delay time.Duration
}

func (s *stubOrders) Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error) {
	s.data = data
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.resp, s.err
}

func newStubClient(stub *stubOrders, timeout time.Duration) *Client {
	return &Client{
		config: Config{KeyID: "rzp_test_key", KeySecret: "secret", Timeout: timeout},
		orders: stub,
	}
}

func TestCreateOrder(t *testing.T) {
	stub := &stubOrders{resp: map[string]interface{}{
		"id":       "order_ABC",
		"amount":   float64(97000),
		"currency": "INR",
		"status":   "created",
	}}
	c := newStubClient(stub, time.Second)

	o, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:   97000,
		Currency: "INR",
		Receipt:  "order_rcpt_1",
		Notes:    map[string]string{"order_id": "1"},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.ID != "order_ABC" || o.Amount != 97000 || o.Status != "created" {
		t.Fatalf("unexpected order %+v", o)
	}
	if stub.data["receipt"] != "order_rcpt_1" || stub.data["amount"] != int64(97000) {
		t.Fatalf("unexpected request %+v", stub.data)
	}
	if notes, ok := stub.data["notes"].(map[string]interface{}); !ok || notes["order_id"] != "1" {
		t.Fatalf("notes not forwarded: %+v", stub.data["notes"])
	}
}

func TestCreateOrderErrors(t *testing.T) {
	t.Run("sdk error", func(t *testing.T) {
		boom := errors.New("bad gateway")
		c := newStubClient(&stubOrders{err: boom}, time.Second)
		if _, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"}); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped sdk error, got %v", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		c := newStubClient(&stubOrders{resp: map[string]interface{}{}}, time.Second)
		if _, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"}); !errors.Is(err, ErrMissingOrderID) {
			t.Fatalf("expected ErrMissingOrderID, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		c := newStubClient(&stubOrders{delay: 200 * time.Millisecond, resp: map[string]interface{}{"id": "late"}}, 20*time.Millisecond)
		if _, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"}); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		c := newStubClient(&stubOrders{}, time.Second)
		if _, err := c.CreateOrder(context.Background(), CreateOrderRequest{Currency: "INR"}); err == nil {
			t.Fatal("expected validation error")
		}
	})
}
