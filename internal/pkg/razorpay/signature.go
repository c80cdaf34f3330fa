package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sign returns hex(HMAC-SHA256(secret, payload))
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignature is the checkout callback signature: HMAC over
// "<order_id>|<payment_id>" with the key secret
func PaymentSignature(keySecret, gatewayOrderID, gatewayPaymentID string) string {
	return Sign(keySecret, []byte(gatewayOrderID+"|"+gatewayPaymentID))
}

// VerifySignature compares hex digests in constant time, ignoring case
func VerifySignature(expectedHex, receivedHex string) bool {
	expected := strings.ToLower(strings.TrimSpace(expectedHex))
	received := strings.ToLower(strings.TrimSpace(receivedHex))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

func (c *Client) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if c.config.KeySecret == "" || signature == "" {
		return false
	}
	return VerifySignature(PaymentSignature(c.config.KeySecret, gatewayOrderID, gatewayPaymentID), signature)
}

// SignPayment signs a callback the gateway has already confirmed out of band
func (c *Client) SignPayment(gatewayOrderID, gatewayPaymentID string) string {
	return PaymentSignature(c.config.KeySecret, gatewayOrderID, gatewayPaymentID)
}

// VerifyWebhookSignature checks X-Razorpay-Signature against the raw body
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.config.WebhookSecret == "" || signature == "" {
		return false
	}
	return VerifySignature(Sign(c.config.WebhookSecret, body), signature)
}
