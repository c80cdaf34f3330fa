package invoice

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/domain/order"
	"github.com/shopverse/checkout-api/internal/middleware"
	"github.com/shopverse/checkout-api/internal/pkg/errorhandler"
	"github.com/shopverse/checkout-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Download handles GET /orders/{id}/invoice
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid order ID")
		return
	}

	pdf, err := h.svc.Generate(ctx, userID, orderID)
	switch {
	case err == nil:
	case errors.Is(err, order.ErrOrderNotFound):
		errorhandler.HandleError(ctx, w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", err)
		return
	case errors.Is(err, ErrInvoiceUnavailable):
		errorhandler.HandleError(ctx, w, http.StatusConflict, "INVOICE_UNAVAILABLE", "Invoice is available once the order is paid", err)
		return
	default:
		errorhandler.Internal(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+orderID.String()+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
