package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/domain/wallet"
	"github.com/shopverse/checkout-api/internal/middleware"
	"github.com/shopverse/checkout-api/internal/pkg/errorhandler"
	"github.com/shopverse/checkout-api/internal/pkg/response"
	"github.com/shopverse/checkout-api/internal/pkg/validator"
)

type Handler struct {
	svc     *Service
	invoice http.HandlerFunc
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// WithInvoice serves GET /orders/{id}/invoice with fn
func (h *Handler) WithInvoice(fn http.HandlerFunc) *Handler {
	h.invoice = fn
	return h
}

// Create handles POST /orders
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	o, err := h.svc.CreateOrder(r.Context(), userID, &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.Created(w, o)
}

// List handles GET /orders
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	orders, total, err := h.svc.List(r.Context(), userID, limit, offset)
	if err != nil {
		errorhandler.Internal(r.Context(), w, err)
		return
	}
	response.WithMeta(w, orders, response.NewMeta(total, limit, offset))
}

// Get handles GET /orders/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
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

	o, err := h.svc.Get(r.Context(), userID, orderID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, o)
}

// Cancel handles POST /orders/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
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

	o, err := h.svc.Cancel(r.Context(), userID, orderID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, o)
}

// UpdateStatus handles PATCH /admin/orders/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid order ID")
		return
	}

	var req UpdateStatusRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), orderID, Status(req.Status))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, o)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, ErrEmptyCart):
		errorhandler.HandleError(ctx, w, http.StatusUnprocessableEntity, "EMPTY_CART", "Your cart is empty", err)
	case errors.Is(err, ErrOutOfStock):
		errorhandler.HandleError(ctx, w, http.StatusUnprocessableEntity, "OUT_OF_STOCK", err.Error(), err)
	case errors.Is(err, ErrAddressNotFound):
		errorhandler.HandleError(ctx, w, http.StatusNotFound, "ADDRESS_NOT_FOUND", "Address not found", err)
	case errors.Is(err, ErrOrderNotFound):
		errorhandler.HandleError(ctx, w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", err)
	case errors.Is(err, ErrInvalidTransition):
		errorhandler.HandleError(ctx, w, http.StatusConflict, "INVALID_TRANSITION", "Order cannot move to that status", err)
	case errors.Is(err, wallet.ErrInsufficientBalance):
		errorhandler.HandleError(ctx, w, http.StatusConflict, "INSUFFICIENT_BALANCE", "Not enough coins in wallet", err)
	default:
		errorhandler.Internal(ctx, w, err)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cancel", h.Cancel)
	if h.invoice != nil {
		r.Get("/{id}/invoice", h.invoice)
	}
	return r
}

// AdminRoutes mounts the fulfilment console endpoints
func (h *Handler) AdminRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())
	r.Patch("/{id}/status", h.UpdateStatus)
	return r
}
