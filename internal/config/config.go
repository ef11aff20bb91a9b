package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendSQLite   = "sqlite"
	BackendJSON     = "json"
	BackendPostgres = "postgres"
)

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Port     int    `env:"PORT" envDefault:"4000"`
	HTTPAddr string `env:"HTTP_ADDR"`

	AdminUser string `env:"ADMIN_USER" envDefault:"admin"`
	// AdminPass is compared in constant time, or with bcrypt when it holds a
	// bcrypt hash.
	AdminPass string `env:"ADMIN_PASS" envDefault:"changeme"`

	CorsAllowedOrigins []string `env:"FRONTEND_ORIGIN" envSeparator:"," envDefault:"*"`
	TableURLBase       string   `env:"TABLE_URL_BASE"`

	StoreBackend     string `env:"STORE_BACKEND" envDefault:"sqlite"`
	SQLitePath       string `env:"SQLITE_PATH" envDefault:"data.sqlite"`
	DataFile         string `env:"DATA_FILE" envDefault:"data.json"`
	JSONCompactEvery int    `env:"JSON_COMPACT_EVERY" envDefault:"256"`
	DatabaseURL      string `env:"DATABASE_URL"`

	StripeSecret  string        `env:"STRIPE_SECRET"`
	StripeTimeout time.Duration `env:"STRIPE_TIMEOUT" envDefault:"10s"`

	OrderTrackingTokenSecret string        `env:"ORDER_TRACKING_TOKEN_SECRET" envDefault:"dev-insecure-tracking-secret"`
	OrderTrackingTokenTTL    time.Duration `env:"ORDER_TRACKING_TOKEN_TTL" envDefault:"72h"`

	RabbitMQURL        string `env:"RABBITMQ_URL"`
	RabbitMQWorkerMode string `env:"RABBITMQ_WORKER_MODE" envDefault:"daemon"`

	MaxFileSizeBytes    int64         `env:"MAX_FILE_SIZE" envDefault:"5242880"`
	WSHeartbeatInterval time.Duration `env:"WS_HEARTBEAT_INTERVAL" envDefault:"30s"`

	// Object store (Cloudflare R2 / S3-compatible)
	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string
	ObjectStoreStorageClass    string
}

// DevTrackingTokenSecret signs order tracking tokens when
// ORDER_TRACKING_TOKEN_SECRET is unset. It is refused in production.
const DevTrackingTokenSecret = "dev-insecure-tracking-secret"

// Load reads the environment. Call godotenv.Load first to pick up a .env file.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.ObjectStoreEndpoint = getEnvFirst([]string{"OBJECT_STORE_ENDPOINT", "R2_S3_ENDPOINT"}, "")
	cfg.ObjectStoreRegion = getEnvFirst([]string{"OBJECT_STORE_REGION", "R2_REGION"}, "auto")
	cfg.ObjectStoreAccessKeyID = getEnvFirst([]string{"OBJECT_STORE_ACCESS_KEY_ID", "R2_ACCESS_KEY_ID"}, "")
	cfg.ObjectStoreSecretAccessKey = getEnvFirst([]string{"OBJECT_STORE_SECRET_ACCESS_KEY", "R2_SECRET_ACCESS_KEY"}, "")
	cfg.ObjectStoreBucket = getEnvFirst([]string{"OBJECT_STORE_BUCKET", "R2_BUCKET"}, "")
	cfg.ObjectStorePublicBaseURL = getEnvFirst([]string{"OBJECT_STORE_PUBLIC_BASE_URL", "R2_PUBLIC_BASE_URL"}, "")
	cfg.ObjectStoreStorageClass = getEnvFirst([]string{"OBJECT_STORE_STORAGE_CLASS", "R2_STORAGE_CLASS"}, "STANDARD")

	// Back-compat: allow R2_ACCOUNT_ID -> endpoint
	if strings.TrimSpace(cfg.ObjectStoreEndpoint) == "" {
		accountID := strings.TrimSpace(os.Getenv("R2_ACCOUNT_ID"))
		if accountID != "" {
			cfg.ObjectStoreEndpoint = "https://" + accountID + ".r2.cloudflarestorage.com"
		}
	}

	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = fmt.Sprintf(":%d", cfg.Port)
	}
	if strings.TrimSpace(cfg.TableURLBase) == "" {
		cfg.TableURLBase = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	cfg.TableURLBase = strings.TrimRight(cfg.TableURLBase, "/")
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	origins := make([]string, 0, len(cfg.CorsAllowedOrigins))
	for _, o := range cfg.CorsAllowedOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.CorsAllowedOrigins = origins

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendJSON:
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want sqlite, json or postgres)", c.StoreBackend)
	}
	if c.Env == "production" {
		if c.AdminPass == "changeme" {
			return fmt.Errorf("ADMIN_PASS must be changed in production")
		}
		if s := strings.TrimSpace(c.OrderTrackingTokenSecret); s == "" || s == DevTrackingTokenSecret {
			return fmt.Errorf("ORDER_TRACKING_TOKEN_SECRET must be set in production")
		}
	}
	return nil
}

// IsDevelopment reports whether verbose logging and relaxed defaults apply.
func (c Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

func (c Config) ObjectStoreEnabled() bool {
	return c.ObjectStoreEndpoint != "" && c.ObjectStoreBucket != "" &&
		c.ObjectStoreAccessKeyID != "" && c.ObjectStoreSecretAccessKey != ""
}

func getEnvFirst(keys []string, fallback string) string {
	for _, k := range keys {
		value := strings.TrimSpace(os.Getenv(k))
		if value != "" {
			return value
		}
	}
	return fallback
}
