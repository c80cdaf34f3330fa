package redemption

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/middleware"
)

func authed(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), userID, "user")))
		})
	}
}

func TestHandlerApply(t *testing.T) {
	svc, _, _ := newTestService(1000, 300)
	router := NewHandler(svc).Routes(authed(uuid.New()))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"clamped", `{"coins": 500}`, http.StatusOK},
		{"negative", `{"coins": -1}`, http.StatusUnprocessableEntity},
		{"missing", `{}`, http.StatusUnprocessableEntity},
		{"malformed", `{"coins":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/coins", strings.NewReader(tt.body)))
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.code, rec.Body.String())
			}
		})
	}
}

func TestHandlerApplyBody(t *testing.T) {
	svc, _, _ := newTestService(1000, 300)
	router := NewHandler(svc).Routes(authed(uuid.New()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/coins", strings.NewReader(`{"coins": 500}`)))

	var body struct {
		Data Redemption `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.CoinsApplied != 300 || body.Data.DiscountAmount != 30 {
		t.Fatalf("unexpected data %+v", body.Data)
	}
}
