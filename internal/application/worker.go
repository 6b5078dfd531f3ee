package application

import (
	"context"
	"sync"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// EventHandler processes jobs for the topics it claims. Handle returns a
// tagged outcome; it never panics the worker and never returns silently.
type EventHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, store *domain.Store, job *domain.Job) domain.Outcome
}

// WorkerPoolConfig bounds the pool and its retry schedule.
type WorkerPoolConfig struct {
	Workers     int
	MaxAttempts int
	Backoff     time.Duration
	BackoffMax  time.Duration
}

// WorkerPool consumes jobs from the queue and routes them to event handlers.
// Store settings are re-read at job start, retryable failures requeue the job
// with capped exponential backoff, and one store's failing job never blocks
// another store's work.
type WorkerPool struct {
	queue    ports.JobQueue
	stores   ports.StoreRepository
	handlers []EventHandler
	metrics  metrics.Recorder
	logger   zerolog.Logger
	cfg      WorkerPoolConfig

	wg sync.WaitGroup
}

// NewWorkerPool creates a worker pool routing jobs to the given handlers
func NewWorkerPool(
	queue ports.JobQueue,
	stores ports.StoreRepository,
	handlers []EventHandler,
	recorder metrics.Recorder,
	cfg WorkerPoolConfig,
	logger zerolog.Logger,
) *WorkerPool {
	return &WorkerPool{
		queue:    queue,
		stores:   stores,
		handlers: handlers,
		metrics:  recorder,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start launches the configured number of workers. They run until ctx is
// cancelled.
func (w *WorkerPool) Start(ctx context.Context) {
	workers := w.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	w.logger.Info().Int("workers", workers).Msg("Starting worker pool")

	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop blocks until all in-flight jobs and pending requeues are done. Cancel
// the Start context first.
func (w *WorkerPool) Stop() {
	w.wg.Wait()
	w.logger.Info().Msg("Worker pool stopped")
}

func (w *WorkerPool) run(ctx context.Context, id int) {
	defer w.wg.Done()
	logger := w.logger.With().Int("worker", id).Logger()

	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("Failed to dequeue job")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		w.process(ctx, logger, job)
	}
}

func (w *WorkerPool) process(ctx context.Context, logger zerolog.Logger, job *domain.Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("job_id", job.ID).
				Str("topic", job.Topic).
				Msg("Recovered from job panic")
		}
	}()

	// Settings are read fresh at job start; a store disabled after enqueue
	// stops here.
	store, err := w.stores.GetByID(ctx, job.StoreID)
	if err != nil {
		logger.Error().Err(err).
			Str("job_id", job.ID).
			Str("shop_domain", job.StoreDomain).
			Msg("Failed to load store for job")
		w.maybeRetry(ctx, logger, job, err)
		return
	}
	if store == nil || !store.Enabled {
		logger.Warn().
			Str("job_id", job.ID).
			Str("shop_domain", job.StoreDomain).
			Str("topic", job.Topic).
			Msg("Dropping job for unknown or disabled store")
		return
	}

	jobCtx := domain.WithStoreDomain(ctx, store.Domain)
	jobLogger := logger.With().
		Str("shop_domain", store.Domain).
		Str("topic", job.Topic).
		Str("job_id", job.ID).
		Logger()

	handler := w.handlerFor(job.Topic)
	if handler == nil {
		jobLogger.Debug().Msg("No handler for topic, skipping job")
		return
	}

	out := handler.Handle(jobCtx, store, job)
	if out.Status == domain.OutcomeError && domain.IsRetryable(out.Err) {
		w.maybeRetry(ctx, jobLogger, job, out.Err)
	}
}

func (w *WorkerPool) handlerFor(topic string) EventHandler {
	for _, h := range w.handlers {
		if h.CanHandle(topic) {
			return h
		}
	}
	return nil
}

// maybeRetry requeues the job with attempt+1 after a backoff, unless the
// retry budget is spent. The requeue goroutine is tracked so Stop waits for
// it.
func (w *WorkerPool) maybeRetry(ctx context.Context, logger zerolog.Logger, job *domain.Job, cause error) {
	if job.Attempts+1 >= w.cfg.MaxAttempts {
		logger.Error().Err(cause).
			Int("attempts", job.Attempts+1).
			Str("job_id", job.ID).
			Msg("Job exhausted its retry budget")
		return
	}

	delay := backoffFor(w.cfg.Backoff, w.cfg.BackoffMax, job.Attempts)
	retry := *job
	retry.Attempts++

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := w.queue.Enqueue(ctx, &retry); err != nil {
			logger.Error().Err(err).
				Str("job_id", retry.ID).
				Msg("Failed to requeue job")
			return
		}
		w.metrics.JobRetried(retry.Topic)
		logger.Warn().Err(cause).
			Int("attempt", retry.Attempts).
			Dur("backoff", delay).
			Str("job_id", retry.ID).
			Msg("Requeued job after retryable failure")
	}()
}

func backoffFor(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(attempt)
	if max > 0 && d > max {
		d = max
	}
	return d
}
