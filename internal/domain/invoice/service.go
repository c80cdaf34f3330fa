package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/domain/order"
	"github.com/shopverse/checkout-api/internal/domain/payment"
	"github.com/shopverse/checkout-api/internal/pkg/invoice"
	"github.com/shopverse/checkout-api/internal/pkg/logger"
	"github.com/shopverse/checkout-api/internal/pkg/storage"
)

const contentType = "application/pdf"

// ErrInvoiceUnavailable is returned for orders that are not paid yet
var ErrInvoiceUnavailable = errors.New("invoice is available once the order is paid")

type Orders interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error)
}

type Payments interface {
	GetByOrder(ctx context.Context, userID, orderID uuid.UUID) (*payment.View, error)
}

// Service renders invoices and caches them in storage
type Service struct {
	orders   Orders
	payments Payments
	store    storage.Storage
	seller   string
}

func NewService(orders Orders, payments Payments, store storage.Storage, seller string) *Service {
	return &Service{orders: orders, payments: payments, store: store, seller: seller}
}

// Key is where the invoice for orderID is cached
func Key(orderID uuid.UUID) string {
	return "invoices/" + orderID.String() + ".pdf"
}

// Generate returns the PDF invoice for the user's paid order
func (s *Service) Generate(ctx context.Context, userID, orderID uuid.UUID) ([]byte, error) {
	o, err := s.orders.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus != order.PaymentPaid {
		return nil, ErrInvoiceUnavailable
	}

	if cached, err := s.cached(ctx, o.ID); err != nil {
		logger.LogWarn(ctx, "invoice cache read failed", "order_id", o.ID.String(), "error", err.Error())
	} else if cached != nil {
		return cached, nil
	}

	var paymentID string
	view, err := s.payments.GetByOrder(ctx, userID, orderID)
	switch {
	case err == nil:
		paymentID = view.GatewayPaymentID
	case errors.Is(err, payment.ErrPaymentNotFound):
	default:
		return nil, err
	}

	pdf, err := invoice.Render(s.document(o, paymentID))
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, Key(o.ID), bytes.NewReader(pdf), contentType); err != nil {
		logger.LogError(ctx, err, "invoice cache write failed", "order_id", o.ID.String())
	}
	return pdf, nil
}

func (s *Service) cached(ctx context.Context, orderID uuid.UUID) ([]byte, error) {
	rc, err := s.store.Get(ctx, Key(orderID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read cached invoice: %w", err)
	}
	return data, nil
}

func (s *Service) document(o *order.Order, paymentID string) invoice.Document {
	a := o.ShippingAddress
	doc := invoice.Document{
		Number:         "INV-" + strings.ToUpper(strings.ReplaceAll(o.ID.String(), "-", "")[:12]),
		IssuedAt:       o.CreatedAt,
		Seller:         s.seller,
		Currency:       o.Currency,
		PaymentID:      paymentID,
		BillTo:         []string{a.FullName, a.Line1, a.Line2, a.City + ", " + a.State + " " + a.PostalCode, a.Country, a.Phone},
		Subtotal:       o.Subtotal,
		DeliveryFee:    o.DeliveryFee,
		CouponDiscount: o.CouponDiscount,
		CoinsApplied:   o.CoinsApplied,
		CoinDiscount:   o.Discount,
		Total:          o.TotalAmount,
	}
	for _, it := range o.Items {
		desc := it.ProductName
		if it.VariantLabel != "" {
			desc += " (" + it.VariantLabel + ")"
		}
		doc.Lines = append(doc.Lines, invoice.Line{
			Description: desc,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.LineTotal,
		})
	}
	return doc
}
