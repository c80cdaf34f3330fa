package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	rzp "github.com/razorpay/razorpay-go"
)

// Config holds Razorpay credentials
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

// orderAPI is the subset of the SDK's order resource the client calls
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client creates Razorpay orders and checks Razorpay signatures
type Client struct {
	config Config
	orders orderAPI
}

// CreateOrderRequest describes a remote order. Amount is in minor units (paise).
type CreateOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is the part of Razorpay's order entity the service keeps
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
}

var ErrMissingOrderID = errors.New("razorpay response has no order id")

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		config: cfg,
		orders: rzp.NewClient(cfg.KeyID, cfg.KeySecret).Order,
	}
}

func (c *Client) KeyID() string {
	return c.config.KeyID
}

// CreateOrder registers an order with Razorpay. The SDK call has no
// context parameter, so the caller's deadline is enforced around it.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(c.config.KeyID) == "" || strings.TrimSpace(c.config.KeySecret) == "" {
		return nil, fmt.Errorf("razorpay config error: key id or secret is empty")
	}

	data := map[string]interface{}{
		"amount":          req.Amount,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := c.orders.Create(data, nil)
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("razorpay create order: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("razorpay create order: %w", res.err)
		}
		return parseOrder(res.body, req)
	}
}

func parseOrder(body map[string]interface{}, req CreateOrderRequest) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, ErrMissingOrderID
	}
	o := &Order{
		ID:       id,
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	// JSON numbers arrive as float64
	if amount, ok := body["amount"].(float64); ok {
		o.Amount = int64(amount)
	}
	if currency, ok := body["currency"].(string); ok && currency != "" {
		o.Currency = currency
	}
	o.Status, _ = body["status"].(string)
	return o, nil
}
