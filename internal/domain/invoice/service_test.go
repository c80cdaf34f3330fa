package invoice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopverse/checkout-api/internal/domain/order"
	"github.com/shopverse/checkout-api/internal/domain/payment"
	"github.com/shopverse/checkout-api/internal/middleware"
	"github.com/shopverse/checkout-api/internal/pkg/storage"
)

type fakeOrders map[uuid.UUID]*order.Order

func (f fakeOrders) Get(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	o, ok := f[orderID]
	if !ok || o.UserID != userID {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

type fakePayments struct{ paymentID string }

func (f fakePayments) GetByOrder(ctx context.Context, userID, orderID uuid.UUID) (*payment.View, error) {
	if f.paymentID == "" {
		return nil, payment.ErrPaymentNotFound
	}
	return &payment.View{OrderID: orderID, GatewayPaymentID: f.paymentID, Status: payment.StatusPaid}, nil
}

// countingStore records Put calls on top of a real store
type countingStore struct {
	storage.Storage
	mu   sync.Mutex
	puts int
}

func (c *countingStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.Storage.Put(ctx, key, r, contentType)
}

func newTestService(t *testing.T, o *order.Order) (*Service, *countingStore) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := &countingStore{Storage: local}
	return NewService(fakeOrders{o.ID: o}, fakePayments{paymentID: "pay_1"}, store, "Shopverse"), store
}

func paidOrder() *order.Order {
	return &order.Order{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Items: order.Items{
			{ProductName: "Lamp", VariantLabel: "White", UnitPrice: 1000, Quantity: 1, LineTotal: 1000},
		},
		ShippingAddress: order.Address{FullName: "A Buyer", Line1: "1 Main St", City: "Pune", State: "MH", PostalCode: "411001", Country: "IN"},
		Subtotal:        1000,
		Discount:        30,
		CoinsApplied:    300,
		TotalAmount:     970,
		Currency:        "INR",
		Status:          order.StatusConfirmed,
		PaymentStatus:   order.PaymentPaid,
		CreatedAt:       time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestGenerateCachesInvoice(t *testing.T) {
	o := paidOrder()
	svc, store := newTestService(t, o)
	ctx := context.Background()

	first, err := svc.Generate(ctx, o.UserID, o.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(first, []byte("%PDF-")))

	ok, err := store.Exists(ctx, Key(o.ID))
	require.NoError(t, err)
	assert.True(t, ok)

	second, err := svc.Generate(ctx, o.UserID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.puts)
}

func TestGenerateRequiresPaidOwnedOrder(t *testing.T) {
	o := paidOrder()
	o.PaymentStatus = order.PaymentPending
	svc, store := newTestService(t, o)

	_, err := svc.Generate(context.Background(), o.UserID, o.ID)
	assert.True(t, errors.Is(err, ErrInvoiceUnavailable))

	_, err = svc.Generate(context.Background(), uuid.New(), o.ID)
	assert.True(t, errors.Is(err, order.ErrOrderNotFound))
	assert.Zero(t, store.puts)
}

func TestDownloadHandler(t *testing.T) {
	paid := paidOrder()
	svc, _ := newTestService(t, paid)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), paid.UserID, "user")))
		})
	})
	router.Get("/orders/{id}/invoice", NewHandler(svc).Download)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+paid.ID.String()+"/invoice", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString()+"/invoice", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
