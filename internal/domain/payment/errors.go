package payment

import "errors"

var (
	ErrInvalidSignature   = errors.New("invalid payment signature")
	ErrOrderAlreadyPaid   = errors.New("order already paid")
	ErrOrderNotPayable    = errors.New("order cannot be paid")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// ErrInvalidWebhook is returned for webhook bodies that cannot be parsed
var ErrInvalidWebhook = errors.New("invalid webhook payload")
