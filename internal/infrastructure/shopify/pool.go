package shopify

import (
	"sync"
	"time"

	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// ClientPool hands out per-store platform clients. Clients are cached by
// store domain and access token, so a credential rotation yields a fresh
// client while the old one ages out of use. All clients share one rate
// limiter, which is what keeps the per-store budgets global across workers.
type ClientPool struct {
	mu          sync.RWMutex
	clients     map[poolKey]ports.PlatformClient
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	timeout     time.Duration
	metrics     metrics.Recorder
	logger      zerolog.Logger
}

type poolKey struct {
	shopDomain  string
	accessToken string
}

// NewClientPool creates a pool with default retry settings and no shared
// rate limiter. Intended for tests.
func NewClientPool(logger zerolog.Logger) *ClientPool {
	return NewClientPoolWithOptions(logger, nil, DefaultRetryConfig(), 0, metrics.NewNopRecorder())
}

// NewClientPoolWithOptions creates a pool whose clients share the given
// rate limiter, retry policy, per-call timeout and metrics recorder.
func NewClientPoolWithOptions(
	logger zerolog.Logger,
	rateLimiter *RateLimiter,
	retryConfig RetryConfig,
	timeout time.Duration,
	recorder metrics.Recorder,
) *ClientPool {
	return &ClientPool{
		clients:     make(map[poolKey]ports.PlatformClient),
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		timeout:     timeout,
		metrics:     recorder,
		logger:      logger,
	}
}

// ClientFor returns the cached client for the store, creating one on first
// use.
func (p *ClientPool) ClientFor(storeDomain, accessToken string) ports.PlatformClient {
	key := poolKey{shopDomain: storeDomain, accessToken: accessToken}

	p.mu.RLock()
	client, ok := p.clients[key]
	p.mu.RUnlock()
	if ok {
		return client
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok := p.clients[key]; ok {
		return client
	}

	client = NewClientWithOptions(
		storeDomain,
		accessToken,
		p.rateLimiter,
		p.retryConfig,
		p.timeout,
		p.metrics,
		p.logger.With().Str("shop_domain", storeDomain).Logger(),
	)
	p.clients[key] = client

	p.logger.Debug().
		Str("shop_domain", storeDomain).
		Int("pool_size", len(p.clients)).
		Msg("Created platform client")

	return client
}

// Evict drops every cached client for the store domain. Called when a store
// is disabled or its credentials change.
func (p *ClientPool) Evict(storeDomain string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.clients {
		if key.shopDomain == storeDomain {
			delete(p.clients, key)
		}
	}
}
