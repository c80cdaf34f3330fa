package payment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/domain/order"
	"github.com/shopverse/checkout-api/internal/domain/order/ordertest"
	"github.com/shopverse/checkout-api/internal/domain/payment"
	"github.com/shopverse/checkout-api/internal/domain/pricing"
	"github.com/shopverse/checkout-api/internal/pkg/database"
	"github.com/shopverse/checkout-api/internal/pkg/database/txtest"
	paymentpkg "github.com/shopverse/checkout-api/internal/pkg/payment"
	"github.com/shopverse/checkout-api/internal/pkg/razorpay"
)

const (
	keySecret     = "test_secret"
	webhookSecret = "whsec"
)

// memRepo is an in-memory payment.Repository
type memRepo struct {
	txtest.Locker

	mu         sync.Mutex
	payments   map[uuid.UUID]*payment.Payment
	superseded map[string]uuid.UUID
	paidOps    int
}

func newMemRepo() *memRepo {
	return &memRepo{payments: map[uuid.UUID]*payment.Payment{}, superseded: map[string]uuid.UUID{}}
}

func (m *memRepo) save(tx database.Tx, p *payment.Payment) {
	prev, existed := m.payments[p.ID]
	cp := *p
	m.payments[p.ID] = &cp
	if h := txtest.Hooks(tx); h != nil {
		h.OnRollback(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if existed {
				m.payments[p.ID] = prev
			} else {
				delete(m.payments, p.ID)
			}
		})
	}
}

func (m *memRepo) find(match func(*payment.Payment) bool) *payment.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if match(p) {
			cp := *p
			return &cp
		}
	}
	return nil
}

func (m *memRepo) CreateTx(ctx context.Context, tx database.Tx, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.OrderID == p.OrderID {
			return fmt.Errorf("duplicate payment for order %s", p.OrderID)
		}
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.save(tx, p)
	return nil
}

func (m *memRepo) RestartTx(ctx context.Context, tx database.Tx, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.payments[p.ID]; ok && stored.GatewayOrderID != p.GatewayOrderID {
		old := stored.GatewayOrderID
		m.superseded[old] = p.ID
		if h := txtest.Hooks(tx); h != nil {
			h.OnRollback(func() {
				m.mu.Lock()
				defer m.mu.Unlock()
				delete(m.superseded, old)
			})
		}
	}
	p.Status = payment.StatusPending
	p.GatewayPaymentID.Valid = false
	p.Signature.Valid = false
	p.FailureReason.Valid = false
	m.save(tx, p)
	return nil
}

func (m *memRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*payment.Payment, error) {
	return m.find(func(p *payment.Payment) bool { return p.OrderID == orderID }), nil
}

func (m *memRepo) GetByOrderIDTx(ctx context.Context, tx database.Tx, orderID uuid.UUID) (*payment.Payment, error) {
	return m.GetByOrderID(ctx, orderID)
}

func (m *memRepo) GetByGatewayOrderIDTx(ctx context.Context, tx database.Tx, gatewayOrderID string) (*payment.Payment, error) {
	if p := m.find(func(p *payment.Payment) bool { return p.GatewayOrderID == gatewayOrderID }); p != nil {
		return p, nil
	}
	m.mu.Lock()
	id, ok := m.superseded[gatewayOrderID]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return m.find(func(p *payment.Payment) bool { return p.ID == id }), nil
}

func (m *memRepo) MarkPaidTx(ctx context.Context, tx database.Tx, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paidOps++
	p.Status = payment.StatusPaid
	m.save(tx, p)
	return nil
}

func (m *memRepo) MarkFailedTx(ctx context.Context, tx database.Tx, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Status = payment.StatusFailed
	m.save(tx, p)
	return nil
}

func (m *memRepo) paidCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paidOps
}

// fakeGateway signs like Razorpay but creates orders locally
type fakeGateway struct {
	*paymentpkg.RazorpayProvider

	mu    sync.Mutex
	calls int
	err   error
	last  paymentpkg.OrderRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{RazorpayProvider: paymentpkg.NewRazorpayProvider(razorpay.Config{
		KeyID:         "rzp_test_key",
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
	})}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req paymentpkg.OrderRequest) (*paymentpkg.OrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.calls++
	g.last = req
	return &paymentpkg.OrderResponse{
		GatewayOrderID: fmt.Sprintf("order_test_%d", g.calls),
		Amount:         req.Amount,
		Currency:       req.Currency,
	}, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fixture struct {
	svc     *payment.Service
	repo    *memRepo
	orders  *ordertest.Repository
	ordSvc  *order.Service
	gateway *fakeGateway
	userID  uuid.UUID
	orderID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newMemRepo(),
		orders:  ordertest.NewRepository(),
		gateway: newFakeGateway(),
		userID:  uuid.New(),
		orderID: uuid.New(),
	}
	f.ordSvc = order.NewService(f.orders, nil, nil, nil, pricing.DefaultRules(), "INR")
	f.svc = payment.NewService(f.repo, f.ordSvc, f.gateway)
	f.orders.Put(&order.Order{
		ID:            f.orderID,
		UserID:        f.userID,
		Subtotal:      1000,
		Discount:      30,
		CoinsApplied:  300,
		TotalAmount:   970,
		Currency:      "INR",
		Status:        order.StatusPlaced,
		PaymentStatus: order.PaymentPending,
	})
	return f
}

func (f *fixture) order(t *testing.T) *order.Order {
	t.Helper()
	o, err := f.ordSvc.Get(context.Background(), f.userID, f.orderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	return o
}

func (f *fixture) intent(t *testing.T) *payment.Intent {
	t.Helper()
	in, err := f.svc.CreateIntent(context.Background(), f.userID, f.orderID)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	return in
}

func (f *fixture) verifyRequest(gatewayOrderID, paymentID string) *payment.VerifyRequest {
	return &payment.VerifyRequest{
		OrderID:          f.orderID,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        razorpay.PaymentSignature(keySecret, gatewayOrderID, paymentID),
	}
}

func TestCreateIntentReusesPendingPayment(t *testing.T) {
	f := newFixture(t)

	first := f.intent(t)
	second := f.intent(t)

	if first.GatewayOrderID != second.GatewayOrderID {
		t.Fatalf("gateway order changed: %s then %s", first.GatewayOrderID, second.GatewayOrderID)
	}
	if got := f.gateway.callCount(); got != 1 {
		t.Fatalf("gateway called %d times, want 1", got)
	}
	if first.Amount != 970 || first.Currency != "INR" || first.GatewayKey != "rzp_test_key" {
		t.Fatalf("unexpected intent %+v", first)
	}
	if len(f.gateway.last.Receipt) > 40 || f.gateway.last.Metadata["order_id"] != f.orderID.String() {
		t.Fatalf("unexpected gateway request %+v", f.gateway.last)
	}
	if o := f.order(t); o.GatewayOrderID == nil || *o.GatewayOrderID != first.GatewayOrderID {
		t.Fatalf("order gateway id = %v", o.GatewayOrderID)
	}
}

func TestCreateIntentConcurrentCallsOpenOneGatewayOrder(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in, err := f.svc.CreateIntent(context.Background(), f.userID, f.orderID)
			if err != nil {
				t.Errorf("CreateIntent: %v", err)
				return
			}
			ids[i] = in.GatewayOrderID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("intents diverged: %v", ids)
		}
	}
	if got := f.gateway.callCount(); got != 1 {
		t.Fatalf("gateway called %d times, want 1", got)
	}
}

func TestCreateIntentRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *order.Order)
		user   func(f *fixture) uuid.UUID
		want   error
	}{
		{name: "other user", user: func(*fixture) uuid.UUID { return uuid.New() }, want: order.ErrOrderNotFound},
		{name: "already paid", mutate: func(o *order.Order) { o.PaymentStatus = order.PaymentPaid }, want: payment.ErrOrderAlreadyPaid},
		{name: "cancelled", mutate: func(o *order.Order) { o.Status = order.StatusCancelled }, want: payment.ErrOrderNotPayable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.mutate != nil {
				o := f.order(t)
				tt.mutate(o)
				f.orders.Put(o)
			}
			userID := f.userID
			if tt.user != nil {
				userID = tt.user(f)
			}

			_, err := f.svc.CreateIntent(context.Background(), userID, f.orderID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if f.gateway.callCount() != 0 {
				t.Fatal("gateway should not be called")
			}
		})
	}
}

func TestCreateIntentGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("connection reset")

	_, err := f.svc.CreateIntent(context.Background(), f.userID, f.orderID)
	if !errors.Is(err, payment.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
	if p, _ := f.repo.GetByOrderID(context.Background(), f.orderID); p != nil {
		t.Fatalf("payment persisted after gateway failure: %+v", p)
	}
	if o := f.order(t); o.GatewayOrderID != nil {
		t.Fatal("order should not carry a gateway id")
	}
}

func TestVerifyAndFinalizeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	in := f.intent(t)
	req := f.verifyRequest(in.GatewayOrderID, "pay_1")

	for i := 0; i < 2; i++ {
		res, err := f.svc.VerifyAndFinalize(context.Background(), f.userID, req)
		if err != nil {
			t.Fatalf("verify #%d: %v", i+1, err)
		}
		if !res.Success || res.PaymentStatus != payment.StatusPaid || res.OrderStatus != string(order.StatusConfirmed) {
			t.Fatalf("verify #%d result %+v", i+1, res)
		}
	}

	if got := f.repo.paidCount(); got != 1 {
		t.Fatalf("payment marked paid %d times, want 1", got)
	}
	o := f.order(t)
	if o.PaymentStatus != order.PaymentPaid || o.Status != order.StatusConfirmed {
		t.Fatalf("order = %s/%s", o.Status, o.PaymentStatus)
	}

	view, err := f.svc.GetByOrder(context.Background(), f.userID, f.orderID)
	if err != nil {
		t.Fatalf("GetByOrder: %v", err)
	}
	if view.GatewayPaymentID != "pay_1" || view.VerifiedAt == nil {
		t.Fatalf("view = %+v", view)
	}
}

func TestVerifyConcurrentCallbacksSettleOnce(t *testing.T) {
	f := newFixture(t)
	in := f.intent(t)
	req := f.verifyRequest(in.GatewayOrderID, "pay_1")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.VerifyAndFinalize(context.Background(), f.userID, req); err != nil {
				t.Errorf("verify: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := f.repo.paidCount(); got != 1 {
		t.Fatalf("payment marked paid %d times, want 1", got)
	}
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	in := f.intent(t)
	req := f.verifyRequest(in.GatewayOrderID, "pay_1")
	req.Signature = razorpay.PaymentSignature("wrong_secret", in.GatewayOrderID, "pay_1")

	_, err := f.svc.VerifyAndFinalize(context.Background(), f.userID, req)
	if !errors.Is(err, payment.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if o := f.order(t); o.PaymentStatus != order.PaymentPending || o.Status != order.StatusPlaced {
		t.Fatalf("order changed to %s/%s", o.Status, o.PaymentStatus)
	}
	if f.repo.paidCount() != 0 {
		t.Fatal("payment should stay pending")
	}
}

func TestVerifyMismatchedOrder(t *testing.T) {
	f := newFixture(t)
	in := f.intent(t)

	req := f.verifyRequest(in.GatewayOrderID, "pay_1")
	req.OrderID = uuid.New()
	if _, err := f.svc.VerifyAndFinalize(context.Background(), f.userID, req); !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("other order: err = %v", err)
	}

	req = f.verifyRequest("order_unknown", "pay_1")
	if _, err := f.svc.VerifyAndFinalize(context.Background(), f.userID, req); !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("unknown gateway order: err = %v", err)
	}

	req = f.verifyRequest(in.GatewayOrderID, "pay_1")
	if _, err := f.svc.VerifyAndFinalize(context.Background(), uuid.New(), req); !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("other user: err = %v", err)
	}
}

func webhookBody(event, gatewayOrderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":97000,"currency":"INR","status":"captured","error_description":"card declined"}}}}`,
		event, paymentID, gatewayOrderID))
}

func TestHandleWebhookCaptured(t *testing.T) {
	f := newFixture(t)
	in := f.intent(t)
	body := webhookBody("payment.captured", in.GatewayOrderID, "pay_9")
	sig := razorpay.Sign(webhookSecret, body)

	for i := 0; i < 2; i++ {
		if err := f.svc.HandleWebhook(context.Background(), body, sig); err != nil {
			t.Fatalf("delivery #%d: %v", i+1, err)
		}
	}

	if o := f.order(t); o.PaymentStatus != order.PaymentPaid || o.Status != order.StatusConfirmed {
		t.Fatalf("order = %s/%s", o.Status, o.PaymentStatus)
	}
	if got := f.repo.paidCount(); got != 1 {
		t.Fatalf("payment marked paid %d times", got)
	}

	// the client callback arriving after the webhook is still a success
	res, err := f.svc.VerifyAndFinalize(context.Background(), f.userID, f.verifyRequest(in.GatewayOrderID, "pay_9"))
	if err != nil || !res.Success {
		t.Fatalf("late verify: %+v, %v", res, err)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	in := f.intent(t)
	body := webhookBody("payment.captured", in.GatewayOrderID, "pay_9")

	err := f.svc.HandleWebhook(context.Background(), body, razorpay.Sign("other", body))
	if !errors.Is(err, payment.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if o := f.order(t); o.PaymentStatus != order.PaymentPending {
		t.Fatalf("payment status = %s", o.PaymentStatus)
	}
}

func TestHandleWebhookFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	in := f.intent(t)
	body := webhookBody("payment.failed", in.GatewayOrderID, "pay_2")

	if err := f.svc.HandleWebhook(context.Background(), body, razorpay.Sign(webhookSecret, body)); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if o := f.order(t); o.PaymentStatus != order.PaymentFailed || o.Status != order.StatusPlaced {
		t.Fatalf("order = %s/%s", o.Status, o.PaymentStatus)
	}
	view, err := f.svc.GetByOrder(context.Background(), f.userID, f.orderID)
	if err != nil {
		t.Fatalf("GetByOrder: %v", err)
	}
	if view.Status != payment.StatusFailed || view.FailureReason != "card declined" {
		t.Fatalf("view = %+v", view)
	}

	retry := f.intent(t)
	if retry.GatewayOrderID == in.GatewayOrderID {
		t.Fatal("retry should open a new gateway order")
	}
	if p, _ := f.repo.GetByOrderID(context.Background(), f.orderID); p.Status != payment.StatusPending {
		t.Fatalf("payment status after retry = %s", p.Status)
	}

	if _, err := f.svc.VerifyAndFinalize(context.Background(), f.userID, f.verifyRequest(retry.GatewayOrderID, "pay_3")); err != nil {
		t.Fatalf("verify retry: %v", err)
	}
	if o := f.order(t); o.PaymentStatus != order.PaymentPaid {
		t.Fatalf("payment status = %s", o.PaymentStatus)
	}
}

// failAndRetry fails the first gateway order and opens a second one
func (f *fixture) failAndRetry(t *testing.T) (first, retry *payment.Intent) {
	t.Helper()
	first = f.intent(t)
	body := webhookBody("payment.failed", first.GatewayOrderID, "pay_declined")
	if err := f.svc.HandleWebhook(context.Background(), body, razorpay.Sign(webhookSecret, body)); err != nil {
		t.Fatalf("failure webhook: %v", err)
	}
	retry = f.intent(t)
	if retry.GatewayOrderID == first.GatewayOrderID {
		t.Fatal("retry should open a new gateway order")
	}
	return first, retry
}

func TestLateCaptureOnReplacedGatewayOrderSettlesOrder(t *testing.T) {
	f := newFixture(t)
	first, _ := f.failAndRetry(t)

	body := webhookBody("payment.captured", first.GatewayOrderID, "pay_late")
	if err := f.svc.HandleWebhook(context.Background(), body, razorpay.Sign(webhookSecret, body)); err != nil {
		t.Fatalf("late capture: %v", err)
	}

	if o := f.order(t); o.PaymentStatus != order.PaymentPaid || o.Status != order.StatusConfirmed {
		t.Fatalf("order = %s/%s, want CONFIRMED/PAID", o.Status, o.PaymentStatus)
	}
	p, _ := f.repo.GetByOrderID(context.Background(), f.orderID)
	if p.Status != payment.StatusPaid || p.GatewayPaymentID.String != "pay_late" {
		t.Fatalf("payment = %s/%s", p.Status, p.GatewayPaymentID.String)
	}
	if _, err := f.svc.CreateIntent(context.Background(), f.userID, f.orderID); !errors.Is(err, payment.ErrOrderAlreadyPaid) {
		t.Fatalf("intent after late capture: err = %v", err)
	}
}

func TestLateFailureOnReplacedGatewayOrderIsIgnored(t *testing.T) {
	f := newFixture(t)
	first, retry := f.failAndRetry(t)

	body := webhookBody("payment.failed", first.GatewayOrderID, "pay_declined_again")
	if err := f.svc.HandleWebhook(context.Background(), body, razorpay.Sign(webhookSecret, body)); err != nil {
		t.Fatalf("late failure: %v", err)
	}
	p, _ := f.repo.GetByOrderID(context.Background(), f.orderID)
	if p.Status != payment.StatusPending || p.GatewayOrderID != retry.GatewayOrderID {
		t.Fatalf("current attempt must stay pending, got %s on %s", p.Status, p.GatewayOrderID)
	}

	if _, err := f.svc.VerifyAndFinalize(context.Background(), f.userID, f.verifyRequest(retry.GatewayOrderID, "pay_ok")); err != nil {
		t.Fatalf("verify retry: %v", err)
	}
	if o := f.order(t); o.PaymentStatus != order.PaymentPaid {
		t.Fatalf("payment status = %s", o.PaymentStatus)
	}
}

func TestHandleWebhookAcknowledgesUnknownAndIgnoredEvents(t *testing.T) {
	f := newFixture(t)

	for _, body := range [][]byte{
		webhookBody("payment.captured", "order_nobody", "pay_1"),
		webhookBody("payment.failed", "order_nobody", "pay_1"),
		webhookBody("refund.created", "order_nobody", "pay_1"),
	} {
		if err := f.svc.HandleWebhook(context.Background(), body, razorpay.Sign(webhookSecret, body)); err != nil {
			t.Fatalf("HandleWebhook(%s): %v", body, err)
		}
	}

	garbage := []byte("not json")
	if err := f.svc.HandleWebhook(context.Background(), garbage, razorpay.Sign(webhookSecret, garbage)); !errors.Is(err, payment.ErrInvalidWebhook) {
		t.Fatalf("garbage: err = %v", err)
	}
}

func TestGetByOrderWithoutPayment(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.GetByOrder(context.Background(), f.userID, f.orderID); !errors.Is(err, payment.ErrPaymentNotFound) {
		t.Fatalf("err = %v, want ErrPaymentNotFound", err)
	}
	if _, err := f.svc.GetByOrder(context.Background(), uuid.New(), f.orderID); !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}
