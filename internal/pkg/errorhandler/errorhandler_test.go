package errorhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/shopverse/checkout-api/internal/pkg/logger"
)

func TestInternalHidesErrorDetail(t *testing.T) {
	var logs bytes.Buffer
	l := zerolog.New(&logs)
	ctx := logger.WithContext(context.Background(), &l)

	w := httptest.NewRecorder()
	Internal(ctx, w, errors.New("pq: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("internal detail leaked to client: %s", w.Body.String())
	}
	if !strings.Contains(logs.String(), "connection refused") {
		t.Fatalf("expected error in logs, got %s", logs.String())
	}
}

func TestLogSecurityEventIsErrorLevel(t *testing.T) {
	var logs bytes.Buffer
	l := zerolog.New(&logs)
	ctx := logger.WithContext(context.Background(), &l)

	LogSecurityEvent(ctx, "invalid_payment_signature", map[string]string{"gateway_order_id": "order_X"})

	var entry map[string]interface{}
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	if entry["level"] != "error" {
		t.Fatalf("expected error level, got %v", entry["level"])
	}
	if entry["gateway_order_id"] != "order_X" {
		t.Fatalf("expected gateway order id field, got %v", entry["gateway_order_id"])
	}
}
