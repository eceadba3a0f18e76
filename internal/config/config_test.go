package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 5*time.Minute, cfg.Cache.FilesTTL)
	assert.Equal(t, "fs", cfg.Storage.Type)
	assert.Equal(t, 8*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Server.TrustProxy)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("SERVER_TRUST_PROXY", "true")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://portal.example, https://admin.example ,")
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("STORAGE_S3_BUCKET", "lab-reports")
	t.Setenv("LOGIN_RATE_LIMIT_RPS", "0.5")
	t.Setenv("LEDGER_PATH", "/srv/ledger.xlsx")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.TrustProxy)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, []string{"https://portal.example", "https://admin.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "lab-reports", cfg.Storage.S3Bucket)
	assert.Equal(t, 0.5, cfg.RateLimit.RPS)
	assert.Equal(t, "/srv/ledger.xlsx", cfg.Ledger.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("METRICS_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		t.Setenv("SESSION_SECRET", testSecret)
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"short secret", func(c *Config) { c.Session.Secret = "short" }},
		{"unknown cache", func(c *Config) { c.Cache.Type = "memcached" }},
		{"fs without dir", func(c *Config) { c.Storage.BaseDir = "" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }},
		{"gcs without bucket", func(c *Config) { c.Storage.Type = "gcs" }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "ftp" }},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	cfg.Cache.Enabled = false
	cfg.Cache.Type = "memcached"
	assert.NoError(t, cfg.Validate())
}
