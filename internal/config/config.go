package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the portal
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	CORS      CORSConfig
	Metrics   MetricsConfig
	Session   SessionConfig
	Storage   StorageConfig
	Ledger    LedgerConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig configures the user and audit store. With Enabled unset
// the portal keeps both in memory.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel string
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// CacheConfig selects where sessions and file lookups are cached
type CacheConfig struct {
	Enabled  bool
	Type     string // memory, redis
	FilesTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type MetricsConfig struct {
	Enabled bool
	Prefix  string
}

type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// StorageConfig selects the report file store
type StorageConfig struct {
	Type       string // fs, s3, gcs
	BaseDir    string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string
	GCSBucket  string
	GCSPrefix  string
}

type LedgerConfig struct {
	Path string
}

type CatalogConfig struct {
	Path string
}

// RateLimitConfig limits login attempts per client IP
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// Load reads configuration from the environment, after loading a .env file
// when one is present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			TrustProxy:      getEnvAsBool("SERVER_TRUST_PROXY", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "lab_portal"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvAsInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "portal:"),
		},
		Cache: CacheConfig{
			Enabled:  getEnvAsBool("CACHE_ENABLED", true),
			Type:     getEnv("CACHE_TYPE", "memory"),
			FilesTTL: getEnvAsDuration("CACHE_FILES_TTL", 5*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Accept", "Content-Type"}),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Prefix:  getEnv("METRICS_PREFIX", "portal"),
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", ""),
			CookieName: getEnv("SESSION_COOKIE_NAME", "portal_session"),
			TTL:        getEnvAsDuration("SESSION_TTL", 8*time.Hour),
			Secure:     getEnvAsBool("SESSION_SECURE", false),
		},
		Storage: StorageConfig{
			Type:       getEnv("STORAGE_TYPE", "fs"),
			BaseDir:    getEnv("STORAGE_BASE_DIR", "data/files"),
			S3Bucket:   getEnv("STORAGE_S3_BUCKET", ""),
			S3Region:   getEnv("STORAGE_S3_REGION", getEnv("AWS_REGION", "us-east-1")),
			S3Endpoint: getEnv("STORAGE_S3_ENDPOINT", ""),
			S3Prefix:   getEnv("STORAGE_S3_PREFIX", ""),
			GCSBucket:  getEnv("STORAGE_GCS_BUCKET", ""),
			GCSPrefix:  getEnv("STORAGE_GCS_PREFIX", ""),
		},
		Ledger: LedgerConfig{
			Path: getEnv("LEDGER_PATH", "data/ledger.csv"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvAsBool("LOGIN_RATE_LIMIT_ENABLED", true),
			RPS:     getEnvAsFloat("LOGIN_RATE_LIMIT_RPS", 1),
			Burst:   getEnvAsInt("LOGIN_RATE_LIMIT_BURST", 5),
		},
	}

	return cfg, nil
}

// Validate rejects settings the portal cannot start with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}
	if c.Cache.Enabled {
		switch c.Cache.Type {
		case "memory", "redis":
		default:
			return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
		}
	}
	switch c.Storage.Type {
	case "fs":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("STORAGE_BASE_DIR is required for fs storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("STORAGE_S3_BUCKET is required for s3 storage")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("STORAGE_GCS_BUCKET is required for gcs storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("login rate limit needs positive rps and burst")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
