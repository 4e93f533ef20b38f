//go:build unit

package payment_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
)

func hmacHex(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestClientSignatureVerifier(t *testing.T) {
	v := payment.NewClientSignatureVerifier("key-secret")
	valid := hmacHex("key-secret", "order_1|pay_1")

	assert.Equal(t, valid, v.Sign("order_1", "pay_1"))
	assert.NoError(t, v.Verify("order_1", "pay_1", valid))
	assert.NoError(t, v.Verify("order_1", "pay_1", strings.ToUpper(valid)))

	for name, sig := range map[string]string{
		"empty":           "",
		"garbage":         "not-a-signature",
		"other payment":   hmacHex("key-secret", "order_1|pay_2"),
		"wrong secret":    hmacHex("webhook-secret", "order_1|pay_1"),
		"missing divider": hmacHex("key-secret", "order_1pay_1"),
	} {
		t.Run(name, func(t *testing.T) {
			err := v.Verify("order_1", "pay_1", sig)
			assert.ErrorIs(t, err, payment.ErrInvalidSignature)
			assert.ErrorIs(t, err, errs.ErrSecurity)
		})
	}

	assert.ErrorIs(t, payment.NewClientSignatureVerifier("").Verify("o", "p", hmacHex("", "o|p")), payment.ErrInvalidSignature)
}

func TestWebhookSignatureVerifier(t *testing.T) {
	v := payment.NewWebhookSignatureVerifier("webhook-secret")
	body := []byte(`{"event":"payment.captured","payload":{}}`)
	valid := hmacHex("webhook-secret", string(body))

	assert.NoError(t, v.Verify(body, valid))
	assert.ErrorIs(t, v.Verify([]byte(`{"event": "payment.captured","payload":{}}`), valid), payment.ErrInvalidWebhookSignature)
	assert.ErrorIs(t, v.Verify(body, hmacHex("key-secret", string(body))), payment.ErrInvalidWebhookSignature)
}
