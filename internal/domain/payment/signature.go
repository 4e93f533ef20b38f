package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ClientSignatureVerifier checks the signature the gateway hands to the buyer's
// client after a successful payment: HMAC-SHA256 of "orderID|paymentID" keyed
// with the API key secret.
type ClientSignatureVerifier struct {
	secret []byte
}

func NewClientSignatureVerifier(keySecret string) *ClientSignatureVerifier {
	return &ClientSignatureVerifier{secret: []byte(keySecret)}
}

func (v *ClientSignatureVerifier) Sign(gatewayOrderID, gatewayPaymentID string) string {
	return computeHMAC(v.secret, []byte(gatewayOrderID+"|"+gatewayPaymentID))
}

func (v *ClientSignatureVerifier) Verify(gatewayOrderID, gatewayPaymentID, signature string) error {
	if len(v.secret) == 0 || !equalHex(v.Sign(gatewayOrderID, gatewayPaymentID), signature) {
		return ErrInvalidSignature
	}
	return nil
}

// WebhookSignatureVerifier checks webhook deliveries: HMAC-SHA256 of the raw
// request body keyed with the webhook secret. The body must be the exact bytes
// received; re-serialised JSON will not match.
type WebhookSignatureVerifier struct {
	secret []byte
}

func NewWebhookSignatureVerifier(webhookSecret string) *WebhookSignatureVerifier {
	return &WebhookSignatureVerifier{secret: []byte(webhookSecret)}
}

func (v *WebhookSignatureVerifier) Sign(rawBody []byte) string {
	return computeHMAC(v.secret, rawBody)
}

func (v *WebhookSignatureVerifier) Verify(rawBody []byte, signature string) error {
	if len(v.secret) == 0 || !equalHex(v.Sign(rawBody), signature) {
		return ErrInvalidWebhookSignature
	}
	return nil
}

func computeHMAC(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func equalHex(expected, provided string) bool {
	provided = strings.ToLower(strings.TrimSpace(provided))
	if provided == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}
