package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all service configuration loaded from environment variables.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Sync     SyncConfig
	Security SecurityConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"storebridge-syncd"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
}

// ServerConfig holds HTTP server settings. CallbackURL is the public
// address webhook registrations point at.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CallbackURL     string        `envconfig:"WEBHOOK_CALLBACK_URL" default:"http://localhost:8080/webhooks/shopify"`
}

// MongoConfig holds backend record store connection settings.
type MongoConfig struct {
	URI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	Database string `envconfig:"MONGODB_DATABASE" default:"storebridge"`
}

// RedisConfig holds job queue connection settings.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	QueueKey string `envconfig:"REDIS_QUEUE_KEY" default:"storebridge:jobs"`
}

// SyncConfig holds pipeline, worker and orchestrator policy. Bounded waits
// and backoff schedules are configuration, not constants.
type SyncConfig struct {
	Workers          int           `envconfig:"SYNC_WORKERS" default:"4"`
	MaxAttempts      int           `envconfig:"SYNC_MAX_ATTEMPTS" default:"5"`
	RetryBackoff     time.Duration `envconfig:"SYNC_RETRY_BACKOFF" default:"2s"`
	RetryBackoffMax  time.Duration `envconfig:"SYNC_RETRY_BACKOFF_MAX" default:"60s"`
	AcquireTimeout   time.Duration `envconfig:"SYNC_ACQUIRE_TIMEOUT" default:"30s"`
	OutboundTimeout  time.Duration `envconfig:"SYNC_OUTBOUND_TIMEOUT" default:"15s"`
	StoreConcurrency int           `envconfig:"SYNC_STORE_CONCURRENCY" default:"8"`
	InventoryCron    string        `envconfig:"SYNC_INVENTORY_CRON" default:"0 */5 * * * *"`
	BackfillCron     string        `envconfig:"SYNC_BACKFILL_CRON" default:"0 0 * * * *"`
	InventoryBatch   int           `envconfig:"SYNC_INVENTORY_BATCH" default:"50"`
	BackfillPageSize int           `envconfig:"SYNC_BACKFILL_PAGE_SIZE" default:"50"`
	ReprocessBatch   int           `envconfig:"SYNC_REPROCESS_BATCH" default:"50"`
}

// SecurityConfig holds credential material for the service itself.
type SecurityConfig struct {
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" default:""`
	AdminAPIKey   string `envconfig:"ADMIN_API_KEY" default:""`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address in host:port format.
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
