package shopify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/encryption"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probeClient is a platform client whose only scripted behavior is the
// credential probe.
type probeClient struct {
	probeErr error
}

func (c *probeClient) Probe(ctx context.Context) error { return c.probeErr }

func (c *probeClient) GetOrder(ctx context.Context, orderID int64) (*domain.OrderEvent, error) {
	return nil, nil
}

func (c *probeClient) ListOrdersSince(ctx context.Context, since time.Time, limit int) ([]domain.OrderEvent, error) {
	return nil, nil
}

func (c *probeClient) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error {
	return nil
}

func (c *probeClient) CreateWebhook(ctx context.Context, topic, address string) (int64, error) {
	return 0, nil
}

func (c *probeClient) ListWebhooks(ctx context.Context) ([]ports.PlatformWebhook, error) {
	return nil, nil
}

func (c *probeClient) DeleteWebhook(ctx context.Context, webhookID int64) error { return nil }

func newTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	svc, err := encryption.NewService("test-passphrase")
	require.NoError(t, err)
	return NewTokenManager(svc, zerolog.Nop())
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := newTokenManager(t)

	ciphertext, err := tm.EncryptToken("shpat_0123456789abcdef")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "shpat_")

	plaintext, err := tm.DecryptToken(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "shpat_0123456789abcdef", plaintext)
}

func TestTokenManager_RejectsEmptyInput(t *testing.T) {
	tm := newTokenManager(t)

	_, err := tm.EncryptToken("")
	assert.Error(t, err)

	_, err = tm.DecryptToken("")
	assert.Error(t, err)
}

func TestTokenManager_ValidateCredentials(t *testing.T) {
	ctx := context.Background()
	tm := newTokenManager(t)

	tests := []struct {
		name     string
		probeErr error
		valid    bool
	}{
		{"probe succeeds", nil, true},
		{"token revoked", fmt.Errorf("%w: 401", domain.ErrAuthenticationFailed), false},
		{"transient outage assumes valid", fmt.Errorf("%w: 503", domain.ErrTransientUpstream), true},
		{"rate limited assumes valid", fmt.Errorf("%w: 429", domain.ErrRateLimitExceeded), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := tm.ValidateCredentials(ctx, &probeClient{probeErr: tt.probeErr}, "acme-outdoor.myshopify.com")
			require.NoError(t, err)
			assert.Equal(t, tt.valid, valid)
		})
	}
}

func TestTokenManager_ValidateCredentialsRequiresClient(t *testing.T) {
	tm := newTokenManager(t)

	_, err := tm.ValidateCredentials(context.Background(), nil, "acme-outdoor.myshopify.com")
	assert.Error(t, err)

	_, err = tm.ValidateCredentials(context.Background(), &probeClient{}, "")
	assert.Error(t, err)
}
