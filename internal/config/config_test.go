package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "REDIS_URL", "PORT", "LOG_LEVEL", "LOG_FORMAT", "CACHE_TTL_MINUTES",
		"SYNC_ENABLED", "SYNC_CRON", "SYNC_TICKERS", "SYNC_PERIOD", "SSH_PORT", "SSH_HOST_KEY_PATH",
		"PAGES_FILE", "YAHOO_BASE_URL", "TASI_CSV_URL", "SSH_AUTHORIZED_KEYS", "WARMUP_HOUR_UTC",
		"API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.HTTPPort != 8080 || cfg.SSHPort != 23234 {
		t.Fatalf("unexpected default ports: %+v", cfg)
	}
	if cfg.CacheTTL != 12*time.Hour {
		t.Fatalf("expected 12h cache ttl, got %s", cfg.CacheTTL)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Fatalf("unexpected log defaults %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.SyncEnabled {
		t.Fatalf("sync should be disabled without a database")
	}
	if len(cfg.SyncTickers) != 1 || cfg.SyncTickers[0] != "BZ=F" || cfg.SyncPeriod != "1mo" {
		t.Fatalf("unexpected sync defaults: %v %s", cfg.SyncTickers, cfg.SyncPeriod)
	}
	if cfg.WarmupHour != -1 {
		t.Fatalf("warmup should be disabled by default, got %d", cfg.WarmupHour)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("CACHE_TTL_MINUTES", "30")
	t.Setenv("SYNC_TICKERS", "BZ=F, ^GSPC ,")
	t.Setenv("API_KEY", " secret ")

	cfg := Load()
	if cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" || cfg.HTTPPort != 9090 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.APIKey != "secret" {
		t.Fatalf("expected trimmed api key, got %q", cfg.APIKey)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("expected json log format, got %s", cfg.LogFormat)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %s", cfg.CacheTTL)
	}
	if !cfg.SyncEnabled {
		t.Fatalf("expected sync enabled when database configured")
	}
	if len(cfg.SyncTickers) != 2 || cfg.SyncTickers[1] != "^GSPC" {
		t.Fatalf("unexpected tickers %v", cfg.SyncTickers)
	}

	t.Setenv("CACHE_TTL_MINUTES", "bad")
	t.Setenv("SYNC_ENABLED", "false")
	cfg = Load()
	if cfg.CacheTTL != 12*time.Hour {
		t.Fatalf("invalid ttl should fall back to default, got %s", cfg.CacheTTL)
	}
	if cfg.SyncEnabled {
		t.Fatalf("expected SYNC_ENABLED=false to win")
	}
}

func TestLoadWarmupHour(t *testing.T) {
	clearEnv(t)

	t.Setenv("WARMUP_HOUR_UTC", "23")
	if cfg := Load(); cfg.WarmupHour != 23 {
		t.Fatalf("expected warmup hour 23, got %d", cfg.WarmupHour)
	}
	t.Setenv("WARMUP_HOUR_UTC", "24")
	if cfg := Load(); cfg.WarmupHour != -1 {
		t.Fatalf("expected out-of-range hour to disable warmup, got %d", cfg.WarmupHour)
	}
}
