package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Platform      PlatformConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Intake        IntakeConfig
	Guard         GuardConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PlatformConfig holds the auth platform connection. The JWT secret verifies
// the access tokens the platform issues; the service key authorizes
// server-to-server calls (token refresh, sign-out, user lookup).
type PlatformConfig struct {
	URL        string
	ServiceKey string
	JWTSecret  string
}

// RedisConfig holds the realtime feed broker configuration. An empty Addr
// disables the feed.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig holds the license-image bucket configuration. An empty
// Bucket disables presigned uploads and the decode step.
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	URLExpiry time.Duration
}

// IntakeConfig holds the license intake workflow configuration.
type IntakeConfig struct {
	// DigestPepper keys the ban-list digests. Rotating it orphans every
	// stored digest, so treat it like a long-lived credential.
	DigestPepper  string
	SessionTTL    time.Duration
	OCREndpoint   string
	SweepSchedule string
}

// GuardConfig holds route guard configuration
type GuardConfig struct {
	PendingTimeout time.Duration
	ExceptionPaths []string
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// Load loads configuration from the environment. A .env file in the working
// directory is merged in first; missing files are fine.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "dealerdesk"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "dealerdesk"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Platform: PlatformConfig{
			URL:        getEnv("PLATFORM_URL", ""),
			ServiceKey: getEnv("PLATFORM_SERVICE_KEY", ""),
			JWTSecret:  getEnv("PLATFORM_JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			Bucket:    getEnv("STORAGE_BUCKET", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			URLExpiry: parseDuration("STORAGE_URL_EXPIRY", "10m"),
		},
		Intake: IntakeConfig{
			DigestPepper:  getEnv("INTAKE_DIGEST_PEPPER", ""),
			SessionTTL:    parseDuration("INTAKE_SESSION_TTL", "30m"),
			OCREndpoint:   getEnv("INTAKE_OCR_ENDPOINT", ""),
			SweepSchedule: getEnv("INTAKE_SWEEP_SCHEDULE", "@every 10m"),
		},
		Guard: GuardConfig{
			PendingTimeout: parseDuration("GUARD_PENDING_TIMEOUT", "10s"),
			ExceptionPaths: nil, // defaults applied by the guard itself
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "dealerdesk"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Platform.JWTSecret == "" {
		return fmt.Errorf("PLATFORM_JWT_SECRET is required")
	}
	if c.Platform.URL == "" {
		return fmt.Errorf("PLATFORM_URL is required")
	}
	if c.Platform.ServiceKey == "" {
		return fmt.Errorf("PLATFORM_SERVICE_KEY is required")
	}
	if c.Intake.DigestPepper == "" {
		return fmt.Errorf("INTAKE_DIGEST_PEPPER is required")
	}
	if c.Storage.Bucket != "" && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required when STORAGE_BUCKET is set")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
