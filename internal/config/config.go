package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	HTTPPort    int

	// APIKey guards the mutating routes when set.
	APIKey string

	LogLevel  string
	LogFormat string

	YahooBaseURL string
	TASICSVURL   string
	CacheTTL     time.Duration
	PagesFile    string

	SyncEnabled bool
	SyncCron    string
	SyncTickers []string
	SyncPeriod  string

	// WarmupHour is the UTC hour of the daily page warmup; -1 disables it.
	WarmupHour int

	SSHPort           int
	SSHHostKeyPath    string
	SSHAuthorizedKeys string
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		YahooBaseURL:      strings.TrimSpace(os.Getenv("YAHOO_BASE_URL")),
		TASICSVURL:        strings.TrimSpace(os.Getenv("TASI_CSV_URL")),
		PagesFile:         strings.TrimSpace(os.Getenv("PAGES_FILE")),
		APIKey:            strings.TrimSpace(os.Getenv("API_KEY")),
		SSHAuthorizedKeys: strings.TrimSpace(os.Getenv("SSH_AUTHORIZED_KEYS")),
	}

	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, run history and price archive disabled")
	}
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, using in-process cache")
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		cfg.LogFormat = "console"
	}

	cfg.CacheTTL = 12 * time.Hour
	if v := strings.TrimSpace(os.Getenv("CACHE_TTL_MINUTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTL = time.Duration(n) * time.Minute
		} else {
			log.Warn().Str("value", v).Msg("invalid CACHE_TTL_MINUTES, defaulting to 720")
		}
	}

	cfg.SyncEnabled = cfg.DatabaseURL != ""
	if v := strings.TrimSpace(os.Getenv("SYNC_ENABLED")); v != "" {
		cfg.SyncEnabled = strings.EqualFold(v, "true") && cfg.DatabaseURL != ""
	}

	cfg.SyncCron = strings.TrimSpace(os.Getenv("SYNC_CRON"))
	if cfg.SyncCron == "" {
		cfg.SyncCron = "0 30 22 * * 1-5"
	}

	cfg.SyncTickers = []string{"BZ=F"}
	if v := strings.TrimSpace(os.Getenv("SYNC_TICKERS")); v != "" {
		var tickers []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, t)
			}
		}
		if len(tickers) > 0 {
			cfg.SyncTickers = tickers
		}
	}

	cfg.SyncPeriod = strings.ToLower(strings.TrimSpace(os.Getenv("SYNC_PERIOD")))
	if cfg.SyncPeriod == "" {
		cfg.SyncPeriod = "1mo"
	}

	cfg.WarmupHour = -1
	if v := strings.TrimSpace(os.Getenv("WARMUP_HOUR_UTC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			cfg.WarmupHour = n
		} else {
			log.Warn().Str("value", v).Msg("invalid WARMUP_HOUR_UTC, warmup disabled")
		}
	}

	cfg.SSHPort = 23234
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSHPort = n
		}
	}

	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/crude_outlook_ed25519"
	}

	return cfg
}
