package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shopverse/checkout-api/internal/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates or assigns a request id and tags the request logger with it
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)
		r.Header.Set(requestIDHeader, requestID)

		ctx := logger.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
