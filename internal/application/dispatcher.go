package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dispatcher authenticates inbound webhook deliveries and turns them into
// queued jobs. It never mutates domain state itself; by the time a delivery
// is acked, the only thing that happened is an enqueue.
type Dispatcher struct {
	registry *Registry
	verifier ports.WebhookVerifier
	queue    ports.JobQueue
	metrics  metrics.Recorder
	logger   zerolog.Logger
}

// NewDispatcher creates the webhook dispatcher
func NewDispatcher(
	registry *Registry,
	verifier ports.WebhookVerifier,
	queue ports.JobQueue,
	recorder metrics.Recorder,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		verifier: verifier,
		queue:    queue,
		metrics:  recorder,
		logger:   logger,
	}
}

// Dispatch resolves the claimed store, verifies the delivery signature with
// that store's own secret, validates the payload shape and enqueues the job.
// The claimed domain is untrusted until the signature check passes.
func (d *Dispatcher) Dispatch(ctx context.Context, claimedDomain, topic string, payload []byte, signature string) error {
	storeDomain := domain.NormalizeStoreDomain(claimedDomain)

	store, err := d.registry.ResolveDomain(ctx, storeDomain)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownStore) {
			d.metrics.WebhookRejected(storeDomain, "unknown_store")
		}
		return err
	}

	secret, err := d.registry.WebhookSecret(store)
	if err != nil {
		d.metrics.WebhookRejected(store.Domain, "secret_unavailable")
		return fmt.Errorf("failed to decrypt webhook secret: %w", err)
	}

	if err := d.verifier.Verify(payload, signature, secret); err != nil {
		d.metrics.WebhookRejected(store.Domain, "bad_signature")
		d.logger.Warn().
			Str("shop_domain", store.Domain).
			Str("topic", topic).
			Msg("Webhook signature verification failed")
		return err
	}

	if err := validatePayload(topic, payload); err != nil {
		d.metrics.WebhookRejected(store.Domain, "invalid_payload")
		return err
	}

	job := &domain.Job{
		ID:          uuid.NewString(),
		StoreID:     store.ID,
		StoreDomain: store.Domain,
		Topic:       topic,
		Payload:     payload,
		ReceivedAt:  time.Now().UTC(),
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		d.metrics.WebhookRejected(store.Domain, "enqueue_failed")
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	d.metrics.WebhookReceived(store.Domain, topic)
	d.metrics.JobEnqueued(topic)
	d.logger.Debug().
		Str("shop_domain", store.Domain).
		Str("topic", topic).
		Str("job_id", job.ID).
		Msg("Webhook accepted")
	return nil
}

// validatePayload rejects deliveries whose body does not decode into the
// typed event for their topic. Unknown topics only need to be valid JSON;
// the worker skips whatever it has no handler for.
func validatePayload(topic string, payload []byte) error {
	switch topic {
	case domain.TopicOrderCreate, domain.TopicOrderUpdated, domain.TopicOrderCancelled,
		domain.TopicOrderPaid, domain.TopicOrderFulfilled:
		var event domain.OrderEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		if event.ID == 0 {
			return fmt.Errorf("%w: order payload carries no ID", domain.ErrValidation)
		}
	case domain.TopicCustomerCreate, domain.TopicCustomerUpdate:
		var event domain.CustomerEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		if event.ID == 0 {
			return fmt.Errorf("%w: customer payload carries no ID", domain.ErrValidation)
		}
	case domain.TopicProductUpdate:
		var event domain.ProductEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		if event.ID == 0 {
			return fmt.Errorf("%w: product payload carries no ID", domain.ErrValidation)
		}
	default:
		if len(payload) > 0 && !json.Valid(payload) {
			return fmt.Errorf("%w: malformed JSON payload", domain.ErrValidation)
		}
	}
	return nil
}
