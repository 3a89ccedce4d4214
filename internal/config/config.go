package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Marketplace  MarketplaceConfig
	Provisioning ProvisioningConfig
	Worker       WorkerConfig
}

// MarketplaceConfig carries both credential pairs for the marketplace
// integration: the inbound pair authorizes us against the marketplace API,
// the outbound pair is what the marketplace presents on our webhook.
type MarketplaceConfig struct {
	BaseURL         string
	InClientID      string
	InClientSecret  string
	OutClientID     string
	OutClientSecret string
	RequestTimeout  time.Duration
}

// ProvisioningConfig points at the storage backend's admin API.
type ProvisioningConfig struct {
	BaseURL        string
	AdminUser      string
	AdminPassword  string
	RequestTimeout time.Duration
}

type WorkerConfig struct {
	// LockDir is where the single-instance pidfiles live.
	LockDir string
	// ExpiryHorizonDays is how far ahead of the billing date an account
	// becomes eligible for reconciliation.
	ExpiryHorizonDays int
	// RunInterval drives the cron trigger in the monolith.
	RunInterval time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "seaport"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "seaport"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Marketplace: MarketplaceConfig{
			BaseURL:         strings.TrimRight(getenv("MARKETPLACE_BASE_URL", ""), "/"),
			InClientID:      strings.TrimSpace(getenv("MARKETPLACE_IN_CLIENT_ID", "")),
			InClientSecret:  strings.TrimSpace(getenv("MARKETPLACE_IN_CLIENT_SECRET", "")),
			OutClientID:     strings.TrimSpace(getenv("MARKETPLACE_OUT_CLIENT_ID", "")),
			OutClientSecret: strings.TrimSpace(getenv("MARKETPLACE_OUT_CLIENT_SECRET", "")),
			RequestTimeout:  getenvDuration("MARKETPLACE_REQUEST_TIMEOUT", 30*time.Second),
		},
		Provisioning: ProvisioningConfig{
			BaseURL:        strings.TrimRight(getenv("PROVISIONING_BASE_URL", ""), "/"),
			AdminUser:      strings.TrimSpace(getenv("PROVISIONING_ADMIN_USER", "")),
			AdminPassword:  strings.TrimSpace(getenv("PROVISIONING_ADMIN_PASSWORD", "")),
			RequestTimeout: getenvDuration("PROVISIONING_REQUEST_TIMEOUT", 30*time.Second),
		},
		Worker: WorkerConfig{
			LockDir:           getenv("WORKER_LOCK_DIR", os.TempDir()),
			ExpiryHorizonDays: getenvInt("WORKER_EXPIRY_HORIZON_DAYS", 3),
			RunInterval:       getenvDuration("WORKER_RUN_INTERVAL", 15*time.Minute),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
