package shopify

import (
	"context"
	"errors"
	"fmt"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// TokenManager handles access token encryption at rest and credential
// validation against the platform.
type TokenManager struct {
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(encryptionSvc ports.EncryptionService, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		encryptionSvc: encryptionSvc,
		logger:        logger,
	}
}

// EncryptToken encrypts an access token before storage
func (tm *TokenManager) EncryptToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return tm.encryptionSvc.Encrypt(token)
}

// DecryptToken decrypts an access token after retrieval
func (tm *TokenManager) DecryptToken(encryptedToken string) (string, error) {
	if encryptedToken == "" {
		return "", fmt.Errorf("encrypted token cannot be empty")
	}
	return tm.encryptionSvc.Decrypt(encryptedToken)
}

// ValidateCredentials probes the platform with the client's credentials.
// Access tokens don't expire but can be revoked, so a definitive 401/403 is
// the only thing that marks them invalid. Transient failures (network,
// upstream outages, rate limits) assume the token is still good, since
// disabling a store over a flaky connection would be worse than retrying.
func (tm *TokenManager) ValidateCredentials(ctx context.Context, client ports.PlatformClient, storeDomain string) (bool, error) {
	if client == nil {
		return false, fmt.Errorf("client is required for credential validation")
	}
	if storeDomain == "" {
		return false, fmt.Errorf("store domain is required for credential validation")
	}

	err := client.Probe(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAuthenticationFailed) {
			tm.logger.Warn().
				Str("shop", storeDomain).
				Msg("Credential validation failed: token is invalid or revoked")
			return false, nil
		}

		tm.logger.Warn().
			Err(err).
			Str("shop", storeDomain).
			Msg("Credential validation encountered an error (assuming token is valid)")
		return true, nil
	}

	tm.logger.Debug().
		Str("shop", storeDomain).
		Msg("Credential validation successful")
	return true, nil
}
