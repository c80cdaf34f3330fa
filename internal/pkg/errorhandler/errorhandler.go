package errorhandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/shopverse/checkout-api/internal/pkg/logger"
	"github.com/shopverse/checkout-api/internal/pkg/response"
)

// HandleError logs the failure and writes the error envelope.
// 5xx responses log at error level, client errors at warn.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	l := logger.FromContext(ctx)
	var event *zerolog.Event
	if status >= http.StatusInternalServerError {
		event = l.Error()
	} else {
		event = l.Warn()
	}
	event = event.
		Str("error_code", code).
		Int("status_code", status)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("Request error")

	response.Error(w, status, code, message)
}

// Internal reports an unexpected failure without leaking its detail
func Internal(ctx context.Context, w http.ResponseWriter, err error) {
	HandleError(ctx, w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", err)
}

// LogValidationError logs request validation failures
func LogValidationError(ctx context.Context, fieldErrors map[string]string) {
	errJSON, _ := json.Marshal(fieldErrors)
	logger.FromContext(ctx).Warn().
		RawJSON("validation_errors", errJSON).
		Msg("Validation error")
}

// LogSecurityEvent records a failed trust check such as a forged payment
// signature. These are logged at error level and never surfaced in detail
// to the caller.
func LogSecurityEvent(ctx context.Context, event string, fields map[string]string) {
	e := logger.FromContext(ctx).Error().
		Str("security_event", event)
	for k, v := range fields {
		e = e.Str(k, v)
	}
	e.Msg("Security check failed")
}

// LogExternalServiceError logs errors from calls to third-party services
func LogExternalServiceError(ctx context.Context, service, operation string, err error) {
	logger.FromContext(ctx).Error().
		Str("external_service", service).
		Str("operation", operation).
		Err(err).
		Msg("External service error")
}
