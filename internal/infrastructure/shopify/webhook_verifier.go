package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"storebridge-sync-core/internal/domain"
)

// WebhookVerifier validates inbound webhook signatures. The platform signs
// the raw request body with HMAC-SHA256 over the store's webhook secret and
// sends the base64 digest in a header.
type WebhookVerifier struct{}

// NewWebhookVerifier creates a webhook signature verifier.
func NewWebhookVerifier() *WebhookVerifier {
	return &WebhookVerifier{}
}

// Verify recomputes the payload signature and compares it against the header
// value in constant time. Any mismatch, missing header or missing secret is
// an authentication failure; the payload must not be processed.
func (v *WebhookVerifier) Verify(payload []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: no webhook secret configured", domain.ErrAuthenticationFailed)
	}
	if signature == "" {
		return fmt.Errorf("%w: missing signature header", domain.ErrAuthenticationFailed)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrAuthenticationFailed)
	}
	return nil
}
