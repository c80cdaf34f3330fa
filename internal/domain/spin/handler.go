package spin

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/middleware"
	"github.com/shopverse/checkout-api/internal/pkg/errorhandler"
	"github.com/shopverse/checkout-api/internal/pkg/logger"
	"github.com/shopverse/checkout-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Spin handles POST /spin
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	result, err := h.svc.Spin(r.Context(), userID)
	if err != nil {
		var limitErr *LimitError
		if errors.As(err, &limitErr) {
			logger.LogInfo(r.Context(), "spin limit reached", "user_id", userID.String())
			response.TooManyRequests(w, "SPIN_LIMIT_REACHED", "No spins left, next spin at "+limitErr.NextSpinAt.UTC().Format(time.RFC3339), limitErr.RetryAfter)
			return
		}
		errorhandler.Internal(r.Context(), w, err)
		return
	}
	response.OK(w, result)
}

// Status handles GET /spin
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	st, err := h.svc.Status(r.Context(), userID)
	if err != nil {
		errorhandler.Internal(r.Context(), w, err)
		return
	}
	response.OK(w, st)
}

// Prizes handles GET /spin/prizes
func (h *Handler) Prizes(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.svc.Prizes())
}

// Routes mounts spin endpoints. limiter guards POST only.
func (h *Handler) Routes(authMiddleware, limiter func(http.Handler) http.Handler) chi.Router {
	if limiter == nil {
		limiter = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Status)
	r.Get("/prizes", h.Prizes)
	r.With(limiter).Post("/", h.Spin)
	return r
}
