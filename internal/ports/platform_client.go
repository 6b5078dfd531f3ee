package ports

import (
	"context"
	"time"

	"storebridge-sync-core/internal/domain"
)

// PlatformWebhook is one webhook registration as reported by the storefront
// platform.
type PlatformWebhook struct {
	ID      int64
	Topic   string
	Address string
}

// PlatformClient defines the outbound storefront API surface the sync engine
// consumes. Implementations are bound to a single store, budget every call
// against that store's rate limit, and translate upstream failures into the
// domain error taxonomy.
type PlatformClient interface {
	// Probe makes the cheapest possible authenticated call, used to
	// validate credentials before a store is enabled.
	Probe(ctx context.Context) error

	// Order API
	GetOrder(ctx context.Context, orderID int64) (*domain.OrderEvent, error)
	ListOrdersSince(ctx context.Context, since time.Time, limit int) ([]domain.OrderEvent, error)

	// Inventory API
	SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error

	// Webhook API
	CreateWebhook(ctx context.Context, topic, address string) (int64, error)
	ListWebhooks(ctx context.Context) ([]PlatformWebhook, error)
	DeleteWebhook(ctx context.Context, webhookID int64) error
}

// ClientPool hands out platform clients bound to a store's domain and
// decrypted access token. Implementations share one rate limiter so every
// client drawn for the same store draws from the same budget. Evict drops
// cached clients for a store after a disable or credential rotation.
type ClientPool interface {
	ClientFor(storeDomain, accessToken string) PlatformClient
	Evict(storeDomain string)
}

// EncryptionService defines the interface for credential encryption at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// CredentialManager defines the interface for store credential handling:
// encryption before storage, decryption on use, and validation against the
// live platform before a store is trusted.
type CredentialManager interface {
	EncryptToken(token string) (string, error)
	DecryptToken(encryptedToken string) (string, error)
	ValidateCredentials(ctx context.Context, client PlatformClient, storeDomain string) (bool, error)
}

// WebhookVerifier defines the interface for inbound webhook signature
// verification. Verify must compare in constant time and return
// domain.ErrAuthenticationFailed on any mismatch.
type WebhookVerifier interface {
	Verify(payload []byte, signature, secret string) error
}
