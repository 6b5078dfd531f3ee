package application

import (
	"context"
	"fmt"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// Registry owns the store tenant lifecycle: registration, credential
// handling, webhook registration on enable, and the domain resolution the
// dispatcher performs on every inbound delivery.
type Registry struct {
	stores      ports.StoreRepository
	credentials ports.CredentialManager
	clients     ports.ClientPool
	webhooks    *WebhookManager
	logger      zerolog.Logger
}

// NewRegistry creates the store registry
func NewRegistry(
	stores ports.StoreRepository,
	credentials ports.CredentialManager,
	clients ports.ClientPool,
	webhooks *WebhookManager,
	logger zerolog.Logger,
) *Registry {
	return &Registry{
		stores:      stores,
		credentials: credentials,
		clients:     clients,
		webhooks:    webhooks,
		logger:      logger,
	}
}

// CreateStoreInput carries the operator-provided fields for a new store.
// Credentials arrive in plaintext and are encrypted before persistence.
type CreateStoreInput struct {
	Name          string `json:"name"`
	Domain        string `json:"domain"`
	AccessToken   string `json:"access_token"`
	WebhookSecret string `json:"webhook_secret"`

	SyncInvoices     bool `json:"sync_invoices"`
	SyncFulfillments bool `json:"sync_fulfillments"`
	SyncInventory    bool `json:"sync_inventory"`
	BackfillEnabled  bool `json:"backfill_enabled"`

	Warehouse              string            `json:"warehouse"`
	InternationalWarehouse string            `json:"international_warehouse"`
	LocationWarehouses     map[string]string `json:"location_warehouses"`
	InventoryLocationID    int64             `json:"inventory_location_id"`
	OrderSeries            string            `json:"order_series"`
	InvoiceSeries          string            `json:"invoice_series"`
	FulfillmentSeries      string            `json:"fulfillment_series"`
	TaxAccount             string            `json:"tax_account"`
	CostCenter             string            `json:"cost_center"`
	CustomerGroup          string            `json:"customer_group"`
	CashAccount            string            `json:"cash_account"`
	HomeCountryCode        string            `json:"home_country_code"`

	OrderCutoff           time.Time `json:"order_cutoff"`
	InventorySyncInterval string    `json:"inventory_sync_interval"` // Go duration string, e.g. "15m"
}

// CreateStore registers a new store tenant, disabled until EnableStore has
// validated its credentials and registered its webhooks.
func (r *Registry) CreateStore(ctx context.Context, input CreateStoreInput) (*domain.Store, error) {
	if input.Domain == "" {
		return nil, fmt.Errorf("%w: store domain is required", domain.ErrValidation)
	}
	if input.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", domain.ErrValidation)
	}
	if input.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret is required", domain.ErrValidation)
	}

	var interval time.Duration
	if input.InventorySyncInterval != "" {
		parsed, err := time.ParseDuration(input.InventorySyncInterval)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid inventory sync interval: %v", domain.ErrValidation, err)
		}
		interval = parsed
	}

	encToken, err := r.credentials.EncryptToken(input.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encSecret, err := r.credentials.EncryptToken(input.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt webhook secret: %w", err)
	}

	store := &domain.Store{
		Name:                   input.Name,
		Domain:                 domain.NormalizeStoreDomain(input.Domain),
		Enabled:                false,
		AccessToken:            encToken,
		WebhookSecret:          encSecret,
		SyncInvoices:           input.SyncInvoices,
		SyncFulfillments:       input.SyncFulfillments,
		SyncInventory:          input.SyncInventory,
		BackfillEnabled:        input.BackfillEnabled,
		Warehouse:              input.Warehouse,
		InternationalWarehouse: input.InternationalWarehouse,
		LocationWarehouses:     input.LocationWarehouses,
		InventoryLocationID:    input.InventoryLocationID,
		OrderSeries:            input.OrderSeries,
		InvoiceSeries:          input.InvoiceSeries,
		FulfillmentSeries:      input.FulfillmentSeries,
		TaxAccount:             input.TaxAccount,
		CostCenter:             input.CostCenter,
		CustomerGroup:          input.CustomerGroup,
		CashAccount:            input.CashAccount,
		HomeCountryCode:        input.HomeCountryCode,
		OrderCutoff:            input.OrderCutoff,
		InventorySyncInterval:  interval,
	}

	id, err := r.stores.Create(ctx, store)
	if err != nil {
		return nil, err
	}

	created, err := r.stores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("%w: store %s missing after create", domain.ErrPersistence, id)
	}

	r.logger.Info().
		Str("shop_domain", created.Domain).
		Str("store_id", created.ID).
		Msg("Store registered")
	return created, nil
}

// ResolveDomain maps an inbound claimed domain to an enabled store. Unknown
// and disabled stores are indistinguishable to the caller.
func (r *Registry) ResolveDomain(ctx context.Context, claimedDomain string) (*domain.Store, error) {
	storeDomain := domain.NormalizeStoreDomain(claimedDomain)
	store, err := r.stores.GetByDomain(ctx, storeDomain)
	if err != nil {
		return nil, err
	}
	if store == nil || !store.Enabled {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStore, storeDomain)
	}
	return store, nil
}

// GetStore retrieves a store by ID
func (r *Registry) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	store, err := r.stores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStore, id)
	}
	return store, nil
}

// ListStores retrieves all registered stores
func (r *Registry) ListStores(ctx context.Context) ([]*domain.Store, error) {
	return r.stores.List(ctx)
}

// WebhookSecret returns the store's decrypted webhook signing secret.
func (r *Registry) WebhookSecret(store *domain.Store) (string, error) {
	return r.credentials.DecryptToken(store.WebhookSecret)
}

// ClientFor returns a platform client bound to the store's credentials.
func (r *Registry) ClientFor(store *domain.Store) (ports.PlatformClient, error) {
	token, err := r.credentials.DecryptToken(store.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return r.clients.ClientFor(store.Domain, token), nil
}

// EnableStore validates the store's credentials against the live platform,
// registers the default webhook topics and flips the store to enabled. Any
// failure aborts the enable and leaves the store disabled.
func (r *Registry) EnableStore(ctx context.Context, id string) (*domain.Store, error) {
	store, err := r.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}

	client, err := r.ClientFor(store)
	if err != nil {
		return nil, err
	}
	valid, err := r.credentials.ValidateCredentials(ctx, client, store.Domain)
	if err != nil {
		return nil, fmt.Errorf("failed to validate credentials: %w", err)
	}
	if !valid {
		return nil, fmt.Errorf("%w: access token rejected by the platform", domain.ErrAuthenticationFailed)
	}

	webhookIDs, err := r.webhooks.EnsureRegistered(ctx, client, store.Domain)
	if err != nil {
		return nil, fmt.Errorf("failed to register webhooks: %w", err)
	}

	store.Enabled = true
	store.RegisteredWebhookIDs = webhookIDs
	if err := r.stores.Update(ctx, store); err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("shop_domain", store.Domain).
		Int("webhooks", len(webhookIDs)).
		Msg("Store enabled")
	return r.GetStore(ctx, id)
}

// DisableStore flips the store to disabled and then cleans up its webhook
// registrations best-effort. The disable is persisted first so new deliveries
// stop dispatching even if cleanup fails.
func (r *Registry) DisableStore(ctx context.Context, id string) (*domain.Store, error) {
	store, err := r.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if !store.Enabled {
		return store, nil
	}

	store.Enabled = false
	if err := r.stores.Update(ctx, store); err != nil {
		return nil, err
	}

	if len(store.RegisteredWebhookIDs) > 0 {
		client, cerr := r.ClientFor(store)
		if cerr != nil {
			r.logger.Warn().Err(cerr).
				Str("shop_domain", store.Domain).
				Msg("Skipping webhook cleanup, credentials unavailable")
		} else {
			r.webhooks.Unregister(ctx, client, store.Domain, store.RegisteredWebhookIDs)
		}
		store.RegisteredWebhookIDs = nil
		if err := r.stores.Update(ctx, store); err != nil {
			r.logger.Warn().Err(err).
				Str("shop_domain", store.Domain).
				Msg("Failed to clear webhook IDs")
		}
	}
	r.clients.Evict(store.Domain)

	r.logger.Info().Str("shop_domain", store.Domain).Msg("Store disabled")
	return r.GetStore(ctx, id)
}

// UpdateCredentials rotates the store's access token and webhook secret. A
// new access token is validated against the platform before it replaces the
// old one.
func (r *Registry) UpdateCredentials(ctx context.Context, id, accessToken, webhookSecret string) (*domain.Store, error) {
	store, err := r.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if accessToken == "" && webhookSecret == "" {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}

	if accessToken != "" {
		client := r.clients.ClientFor(store.Domain, accessToken)
		valid, verr := r.credentials.ValidateCredentials(ctx, client, store.Domain)
		if verr != nil {
			return nil, fmt.Errorf("failed to validate credentials: %w", verr)
		}
		if !valid {
			return nil, fmt.Errorf("%w: access token rejected by the platform", domain.ErrAuthenticationFailed)
		}
		enc, eerr := r.credentials.EncryptToken(accessToken)
		if eerr != nil {
			return nil, fmt.Errorf("failed to encrypt access token: %w", eerr)
		}
		store.AccessToken = enc
	}
	if webhookSecret != "" {
		enc, eerr := r.credentials.EncryptToken(webhookSecret)
		if eerr != nil {
			return nil, fmt.Errorf("failed to encrypt webhook secret: %w", eerr)
		}
		store.WebhookSecret = enc
	}

	if err := r.stores.Update(ctx, store); err != nil {
		return nil, err
	}
	if accessToken != "" {
		r.clients.Evict(store.Domain)
	}

	r.logger.Info().Str("shop_domain", store.Domain).Msg("Store credentials updated")
	return r.GetStore(ctx, id)
}
