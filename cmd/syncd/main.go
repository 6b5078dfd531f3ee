package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storebridge-sync-core/internal/application"
	"storebridge-sync-core/internal/application/webhook_handlers"
	"storebridge-sync-core/internal/config"
	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/api"
	"storebridge-sync-core/internal/infrastructure/encryption"
	"storebridge-sync-core/internal/infrastructure/metrics"
	securitymiddleware "storebridge-sync-core/internal/infrastructure/middleware"
	"storebridge-sync-core/internal/infrastructure/pubsub"
	"storebridge-sync-core/internal/infrastructure/queue"
	"storebridge-sync-core/internal/infrastructure/repository"
	shopifyinfra "storebridge-sync-core/internal/infrastructure/shopify"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.MustLoad()

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.Mongo.Database)

	// Initialize encryption service for credentials at rest
	if cfg.Security.EncryptionKey == "" {
		logger.Fatal().Msg("ENCRYPTION_KEY environment variable is required")
	}
	encryptionSvc, err := encryption.NewService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Initialize repositories
	storeRepo := repository.NewMongoStoreRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)
	invoiceRepo := repository.NewMongoInvoiceRepository(db)
	fulfillmentRepo := repository.NewMongoFulfillmentRepository(db)
	customerRepo := repository.NewMongoCustomerRepository(db)
	itemRepo := repository.NewMongoItemRepository(db)
	stockRepo := repository.NewMongoStockRepository(db)
	linkRepo := repository.NewMongoEntityLinkRepository(db)
	syncLogRepo := repository.NewMongoSyncLogRepository(db)

	recorder := metrics.NewPrometheusRecorder()

	// Initialize platform client pool with shared rate limiter and retry policy
	rateLimiter := shopifyinfra.NewRateLimiter(logger)
	retryConfig := shopifyinfra.DefaultRetryConfig()
	clientPool := shopifyinfra.NewClientPoolWithOptions(
		logger,
		rateLimiter,
		retryConfig,
		cfg.Sync.OutboundTimeout,
		recorder,
	)
	tokenManager := shopifyinfra.NewTokenManager(encryptionSvc, logger)

	// Connect to Redis for the job queue
	jobQueue, err := queue.NewRedisQueue(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.QueueKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer jobQueue.Close()

	noticeBus := pubsub.NewNoticePubSub(logger)

	// Initialize application services
	webhookManager := application.NewWebhookManager(cfg.Server.CallbackURL, logger)
	registry := application.NewRegistry(storeRepo, tokenManager, clientPool, webhookManager, logger)
	resolver := application.NewLineResolver(linkRepo, itemRepo, logger)
	pipeline := application.NewPipeline(
		orderRepo,
		invoiceRepo,
		fulfillmentRepo,
		customerRepo,
		linkRepo,
		syncLogRepo,
		resolver,
		noticeBus,
		recorder,
		logger,
	)
	dispatcher := application.NewDispatcher(registry, shopifyinfra.NewWebhookVerifier(), jobQueue, recorder, logger)

	// Register event handlers for queued jobs
	handlers := []application.EventHandler{
		webhook_handlers.NewOrderHandler(pipeline, logger),
		webhook_handlers.NewCustomerHandler(pipeline, logger),
		webhook_handlers.NewProductHandler(pipeline, logger),
		webhook_handlers.NewAppUninstalledHandler(registry, syncLogRepo, logger),
	}
	workerPool := application.NewWorkerPool(jobQueue, storeRepo, handlers, recorder, application.WorkerPoolConfig{
		Workers:     cfg.Sync.Workers,
		MaxAttempts: cfg.Sync.MaxAttempts,
		Backoff:     cfg.Sync.RetryBackoff,
		BackoffMax:  cfg.Sync.RetryBackoffMax,
	}, logger)

	inventoryService := application.NewInventoryService(
		linkRepo,
		itemRepo,
		stockRepo,
		storeRepo,
		syncLogRepo,
		noticeBus,
		registry,
		recorder,
		cfg.Sync.InventoryBatch,
		logger,
	)
	backfillService := application.NewBackfillService(registry, pipeline, storeRepo, cfg.Sync.BackfillPageSize, logger)
	reprocessor := application.NewReprocessor(syncLogRepo, orderRepo, jobQueue, recorder, int64(cfg.Sync.ReprocessBatch), logger)
	orchestrator := application.NewOrchestrator(
		storeRepo,
		inventoryService,
		backfillService,
		reprocessor,
		cfg.Sync.StoreConcurrency,
		logger,
	)
	monitor := application.NewHealthMonitor(syncLogRepo, orderRepo, invoiceRepo, storeRepo, jobQueue, noticeBus, recorder, logger)

	// Root context ends on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor.Start(ctx)
	workerPool.Start(ctx)
	if err := orchestrator.Start(ctx, cfg.Sync.InventoryCron, cfg.Sync.BackfillCron); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start orchestrator")
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Get("/health/integration", func(w http.ResponseWriter, r *http.Request) {
		report, err := monitor.Report(r.Context())
		if err != nil {
			api.Error(w, err)
			return
		}
		api.OK(w, report)
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", recorder.Handler())

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // The URL pointing to API definition
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// Webhook endpoint: the HMAC signature is the authentication
	r.Post("/webhooks/shopify", webhookHandler(dispatcher, logger))

	// Operator endpoints, gated by the admin API key
	r.Route("/admin", func(r chi.Router) {
		r.Use(securitymiddleware.AdminAuthMiddleware(cfg.Security.AdminAPIKey, logger))

		r.Post("/stores", createStoreHandler(registry))
		r.Get("/stores", listStoresHandler(registry))
		r.Get("/stores/{id}", getStoreHandler(registry))
		r.Post("/stores/{id}/enable", enableStoreHandler(registry))
		r.Post("/stores/{id}/disable", disableStoreHandler(registry))
		r.Put("/stores/{id}/credentials", updateCredentialsHandler(registry))
		r.Post("/stores/{id}/sync/inventory", triggerHandler(orchestrator.TriggerInventorySync))
		r.Post("/stores/{id}/sync/backfill", triggerHandler(orchestrator.TriggerBackfill))
		r.Post("/stores/{id}/reprocess", triggerHandler(orchestrator.TriggerReprocess))
		r.Get("/stores/{id}/summary", summaryHandler(monitor))

		// Fleet-wide triggers fan out to every enabled store
		r.Post("/sync/inventory", fleetTriggerHandler(orchestrator.TriggerInventorySync))
		r.Post("/sync/backfill", fleetTriggerHandler(orchestrator.TriggerBackfill))
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Starting sync server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + fmt.Sprint(cfg.Server.Port) + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	// Scheduled units first, then workers, then the HTTP listener. Workers
	// observe the cancelled root context and stop after their current job.
	orchestrator.Stop()
	workerPool.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	logger.Info().Msg("Shutdown complete")
}

// webhookHandler reads a platform delivery and hands it to the dispatcher.
// The claimed shop domain and topic come from headers; the dispatcher owns
// signature verification, so the raw body is passed through untouched.
func webhookHandler(dispatcher *application.Dispatcher, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shopDomain := r.Header.Get("X-Shopify-Shop-Domain")
		topic := r.Header.Get("X-Shopify-Topic")
		signature := r.Header.Get("X-Shopify-Hmac-Sha256")

		if topic == "" {
			logger.Warn().Msg("Missing X-Shopify-Topic header")
			http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read webhook payload")
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if err := dispatcher.Dispatch(ctx, shopDomain, topic, payload, signature); err != nil {
			api.Error(w, err)
			return
		}

		// Return success
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"received": "true",
		})
	}
}

func createStoreHandler(registry *application.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input application.CreateStoreInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			api.Error(w, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err))
			return
		}

		store, err := registry.CreateStore(r.Context(), input)
		if err != nil {
			api.Error(w, err)
			return
		}
		api.Created(w, store)
	}
}

func listStoresHandler(registry *application.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stores, err := registry.ListStores(r.Context())
		if err != nil {
			api.Error(w, err)
			return
		}
		api.OK(w, stores)
	}
}

func getStoreHandler(registry *application.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := registry.GetStore(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			api.Error(w, err)
			return
		}
		api.OK(w, store)
	}
}

func enableStoreHandler(registry *application.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := registry.EnableStore(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			api.Error(w, err)
			return
		}
		api.OK(w, store)
	}
}

func disableStoreHandler(registry *application.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := registry.DisableStore(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			api.Error(w, err)
			return
		}
		api.OK(w, store)
	}
}

func updateCredentialsHandler(registry *application.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			AccessToken   string `json:"access_token"`
			WebhookSecret string `json:"webhook_secret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			api.Error(w, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err))
			return
		}

		store, err := registry.UpdateCredentials(r.Context(), chi.URLParam(r, "id"), input.AccessToken, input.WebhookSecret)
		if err != nil {
			api.Error(w, err)
			return
		}
		api.OK(w, store)
	}
}

// triggerHandler schedules an orchestrator task for one store. The task
// runs asynchronously, so the response only confirms scheduling.
func triggerHandler(trigger func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := trigger(r.Context(), chi.URLParam(r, "id")); err != nil {
			api.Error(w, err)
			return
		}
		api.JSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
	}
}

func fleetTriggerHandler(trigger func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := trigger(r.Context(), ""); err != nil {
			api.Error(w, err)
			return
		}
		api.JSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
	}
}

func summaryHandler(monitor *application.HealthMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := monitor.Summary(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			api.Error(w, err)
			return
		}
		api.OK(w, summary)
	}
}
