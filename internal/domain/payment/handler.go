package payment

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/domain/order"
	"github.com/shopverse/checkout-api/internal/middleware"
	"github.com/shopverse/checkout-api/internal/pkg/errorhandler"
	"github.com/shopverse/checkout-api/internal/pkg/response"
	"github.com/shopverse/checkout-api/internal/pkg/validator"
)

const (
	// SignatureHeader carries the webhook body HMAC
	SignatureHeader = "X-Razorpay-Signature"

	maxWebhookBody    = 1 << 20
	gatewayRetryAfter = 5 * time.Second
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateIntent handles POST /payments/orders/{id}/intent
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid order ID")
		return
	}

	intent, err := h.svc.CreateIntent(r.Context(), userID, orderID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.Created(w, intent)
}

// Verify handles POST /payments/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req VerifyRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	result, err := h.svc.VerifyAndFinalize(r.Context(), userID, &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, result)
}

// GetByOrder handles GET /payments/orders/{id}
func (h *Handler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid order ID")
		return
	}

	view, err := h.svc.GetByOrder(r.Context(), userID, orderID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, view)
}

// Webhook handles POST /webhooks/razorpay
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "Unreadable body")
		return
	}

	if err := h.svc.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader)); err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, map[string]bool{"received": true})
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, ErrInvalidSignature):
		errorhandler.HandleError(ctx, w, http.StatusBadRequest, "INVALID_SIGNATURE", "Payment signature is invalid", err)
	case errors.Is(err, ErrInvalidWebhook):
		errorhandler.HandleError(ctx, w, http.StatusBadRequest, "INVALID_PAYLOAD", "Webhook payload is invalid", err)
	case errors.Is(err, order.ErrOrderNotFound):
		errorhandler.HandleError(ctx, w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", err)
	case errors.Is(err, ErrPaymentNotFound):
		errorhandler.HandleError(ctx, w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "No payment started for this order", err)
	case errors.Is(err, ErrOrderAlreadyPaid):
		errorhandler.HandleError(ctx, w, http.StatusConflict, "ORDER_ALREADY_PAID", "Order is already paid", err)
	case errors.Is(err, ErrOrderNotPayable):
		errorhandler.HandleError(ctx, w, http.StatusConflict, "ORDER_NOT_PAYABLE", "Order can no longer be paid", err)
	case errors.Is(err, ErrGatewayUnavailable):
		response.ServiceUnavailable(w, "GATEWAY_UNAVAILABLE", "Payment gateway is unavailable, try again shortly", gatewayRetryAfter)
	default:
		errorhandler.Internal(ctx, w, err)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/orders/{id}/intent", h.CreateIntent)
	r.Post("/verify", h.Verify)
	r.Get("/orders/{id}", h.GetByOrder)
	return r
}

// WebhookRoutes mounts the unauthenticated gateway callbacks
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/razorpay", h.Webhook)
	return r
}
