package redemption

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/middleware"
	"github.com/shopverse/checkout-api/internal/pkg/errorhandler"
	"github.com/shopverse/checkout-api/internal/pkg/response"
	"github.com/shopverse/checkout-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ApplyRequest is the body of POST /checkout/coins
type ApplyRequest struct {
	Coins *int64 `json:"coins" validate:"required,gte=0"`
}

// Apply handles POST /checkout/coins
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req ApplyRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	result, err := h.svc.Apply(r.Context(), userID, *req.Coins)
	if err != nil {
		if errors.Is(err, ErrInvalidCoins) {
			response.ValidationError(w, map[string]string{"coins": "Value must be at least 0"})
			return
		}
		errorhandler.Internal(r.Context(), w, err)
		return
	}
	response.OK(w, result)
}

// Remove handles DELETE /checkout/coins
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.svc.Remove(r.Context(), userID); err != nil {
		errorhandler.Internal(r.Context(), w, err)
		return
	}
	response.OK(w, map[string]bool{"success": true})
}

// Summary handles GET /checkout/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	summary, err := h.svc.Summary(r.Context(), userID)
	if err != nil {
		errorhandler.Internal(r.Context(), w, err)
		return
	}
	response.OK(w, summary)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/coins", h.Apply)
	r.Delete("/coins", h.Remove)
	r.Get("/summary", h.Summary)
	return r
}
