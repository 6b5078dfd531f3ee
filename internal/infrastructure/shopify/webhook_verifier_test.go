package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"storebridge-sync-core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerifier_ValidSignature(t *testing.T) {
	v := NewWebhookVerifier()
	payload := []byte(`{"id": 820982911946154508, "email": "jon@example.com"}`)

	require.NoError(t, v.Verify(payload, sign(payload, "hush"), "hush"))
}

func TestWebhookVerifier_RejectsWrongSecret(t *testing.T) {
	v := NewWebhookVerifier()
	payload := []byte(`{"id": 1}`)

	err := v.Verify(payload, sign(payload, "wrong-secret"), "hush")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthenticationFailed))
}

func TestWebhookVerifier_RejectsTamperedPayload(t *testing.T) {
	v := NewWebhookVerifier()
	payload := []byte(`{"id": 1, "total_price": "10.00"}`)
	signature := sign(payload, "hush")

	tampered := []byte(`{"id": 1, "total_price": "0.01"}`)
	err := v.Verify(tampered, signature, "hush")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthenticationFailed))
}

func TestWebhookVerifier_RejectsMissingSignature(t *testing.T) {
	v := NewWebhookVerifier()

	err := v.Verify([]byte(`{}`), "", "hush")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthenticationFailed))
}

func TestWebhookVerifier_RejectsMissingSecret(t *testing.T) {
	v := NewWebhookVerifier()
	payload := []byte(`{}`)

	err := v.Verify(payload, sign(payload, ""), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthenticationFailed))
}

func TestWebhookVerifier_RejectsGarbageSignature(t *testing.T) {
	v := NewWebhookVerifier()

	err := v.Verify([]byte(`{}`), "not base64 at all!!!", "hush")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthenticationFailed))
}
