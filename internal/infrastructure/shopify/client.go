package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// Client adapts the go-shopify SDK to the platform client port. It is bound
// to a single store; every call draws from that store's REST budget before
// leaving the process, runs under the shared retry policy, and comes back
// classified into the domain error taxonomy.
type Client struct {
	shopDomain  string
	accessToken string
	app         goshopify.App
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	timeout     time.Duration
	metrics     metrics.Recorder
	logger      zerolog.Logger
}

// NewClient creates a client without rate limiting or per-call timeouts.
// Intended for tests and one-off tooling; services draw clients from the pool.
func NewClient(shopDomain, accessToken string) ports.PlatformClient {
	return NewClientWithOptions(shopDomain, accessToken, nil, DefaultRetryConfig(), 0, metrics.NewNopRecorder(), zerolog.Nop())
}

// NewClientWithOptions creates a client with rate limiting, retry and
// per-call timeout options.
func NewClientWithOptions(
	shopDomain, accessToken string,
	rateLimiter *RateLimiter,
	retryConfig RetryConfig,
	timeout time.Duration,
	recorder metrics.Recorder,
	logger zerolog.Logger,
) ports.PlatformClient {
	return &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		timeout:     timeout,
		metrics:     recorder,
		logger:      logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *Client) createClient() (*goshopify.Client, error) {
	client, err := goshopify.NewClient(c.app, c.shopDomain, c.accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// do budgets, times out, retries and classifies one platform call.
func (c *Client) do(ctx context.Context, op string, cost float64, fn func(ctx context.Context, client *goshopify.Client) error) error {
	client, err := c.createClient()
	if err != nil {
		return err
	}
	return withRetry(ctx, c.retryConfig, c.logger, op, func() error {
		waited := time.Duration(0)
		if c.rateLimiter != nil {
			start := time.Now()
			if err := c.rateLimiter.Acquire(ctx, c.shopDomain, APIClassREST, cost); err != nil {
				return err
			}
			waited = time.Since(start)
		}
		c.metrics.OutboundCall(c.shopDomain, string(APIClassREST), waited)

		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		return classifyError(op, fn(callCtx, client))
	})
}

// Probe makes the cheapest authenticated call available to check that the
// store's credentials still work.
func (c *Client) Probe(ctx context.Context) error {
	return c.do(ctx, "shop.get", 1, func(ctx context.Context, client *goshopify.Client) error {
		_, err := client.Shop.Get(ctx, nil)
		return err
	})
}

// Order API

func (c *Client) GetOrder(ctx context.Context, orderID int64) (*domain.OrderEvent, error) {
	var order *goshopify.Order
	err := c.do(ctx, "order.get", 1, func(ctx context.Context, client *goshopify.Client) error {
		var err error
		order, err = client.Order.Get(ctx, uint64(orderID), nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orderToEvent(order)
}

// orderListOptions is encoded into the request query string by the SDK.
type orderListOptions struct {
	Status       string    `url:"status,omitempty"`
	Limit        int       `url:"limit,omitempty"`
	CreatedAtMin time.Time `url:"created_at_min,omitempty"`
	Order        string    `url:"order,omitempty"`
}

func (c *Client) ListOrdersSince(ctx context.Context, since time.Time, limit int) ([]domain.OrderEvent, error) {
	options := orderListOptions{
		Status: "any",
		Limit:  limit,
		Order:  "created_at asc",
	}
	if !since.IsZero() {
		options.CreatedAtMin = since
	}

	var orders []goshopify.Order
	err := c.do(ctx, "order.list", 1, func(ctx context.Context, client *goshopify.Client) error {
		var err error
		orders, err = client.Order.List(ctx, options)
		return err
	})
	if err != nil {
		return nil, err
	}

	events := make([]domain.OrderEvent, 0, len(orders))
	for i := range orders {
		event, err := orderToEvent(&orders[i])
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, nil
}

// Inventory API

func (c *Client) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error {
	level := goshopify.InventoryLevel{
		InventoryItemId: uint64(inventoryItemID),
		LocationId:      uint64(locationID),
		Available:       available,
	}
	return c.do(ctx, "inventory_level.set", 1, func(ctx context.Context, client *goshopify.Client) error {
		_, err := client.InventoryLevel.Set(ctx, level)
		return err
	})
}

// Webhook API

func (c *Client) CreateWebhook(ctx context.Context, topic, address string) (int64, error) {
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	var created *goshopify.Webhook
	err := c.do(ctx, "webhook.create", 1, func(ctx context.Context, client *goshopify.Client) error {
		var err error
		created, err = client.Webhook.Create(ctx, webhook)
		return err
	})
	if err != nil {
		return 0, err
	}
	if created == nil {
		return 0, fmt.Errorf("%w: webhook.create returned no webhook", domain.ErrTransientUpstream)
	}
	ported, err := toPortWebhook(created)
	if err != nil {
		return 0, err
	}
	return ported.ID, nil
}

func (c *Client) ListWebhooks(ctx context.Context) ([]ports.PlatformWebhook, error) {
	var webhooks []goshopify.Webhook
	err := c.do(ctx, "webhook.list", 1, func(ctx context.Context, client *goshopify.Client) error {
		var err error
		webhooks, err = client.Webhook.List(ctx, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := make([]ports.PlatformWebhook, 0, len(webhooks))
	for i := range webhooks {
		ported, err := toPortWebhook(&webhooks[i])
		if err != nil {
			return nil, err
		}
		result = append(result, ported)
	}
	return result, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, webhookID int64) error {
	return c.do(ctx, "webhook.delete", 1, func(ctx context.Context, client *goshopify.Client) error {
		return client.Webhook.Delete(ctx, uint64(webhookID))
	})
}

// orderToEvent round-trips an SDK order through its wire form. The domain
// event types are defined against the same JSON the webhooks deliver, so
// fetched orders and delivered orders decode identically.
func orderToEvent(order *goshopify.Order) (*domain.OrderEvent, error) {
	raw, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}
	var event domain.OrderEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &event, nil
}

func toPortWebhook(webhook *goshopify.Webhook) (ports.PlatformWebhook, error) {
	raw, err := json.Marshal(webhook)
	if err != nil {
		return ports.PlatformWebhook{}, fmt.Errorf("failed to encode webhook: %w", err)
	}
	var wire struct {
		ID      int64  `json:"id"`
		Topic   string `json:"topic"`
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return ports.PlatformWebhook{}, fmt.Errorf("failed to decode webhook: %w", err)
	}
	return ports.PlatformWebhook{ID: wire.ID, Topic: wire.Topic, Address: wire.Address}, nil
}

// classifyError maps SDK and transport failures onto the domain error
// taxonomy so callers can tell terminal failures from retryable ones.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var rateErr goshopify.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %s: %v", domain.ErrRateLimitExceeded, op, err)
	}

	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.Status == http.StatusUnauthorized || respErr.Status == http.StatusForbidden:
			return fmt.Errorf("%w: %s: %v", domain.ErrAuthenticationFailed, op, err)
		case respErr.Status == http.StatusNotFound:
			return fmt.Errorf("%w: %s: %v", domain.ErrRemoteNotFound, op, err)
		case respErr.Status >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s: %v", domain.ErrTransientUpstream, op, err)
		default:
			return fmt.Errorf("%w: %s: %v", domain.ErrValidation, op, err)
		}
	}

	// Everything else is transport-level (timeouts, connection resets)
	// and worth retrying.
	return fmt.Errorf("%w: %s: %v", domain.ErrTransientUpstream, op, err)
}
