// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the Telegram
// credentials, lead-ledger settings, session policy, logging, rate limiting,
// and observability options of the bot.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cryverse/telegram-30leads-bot-new/internal/sysutil"
)

// Ledger backends selectable via LEDGER_BACKEND.
const (
	LedgerBackendSheets = "sheets"
	LedgerBackendSQLite = "sqlite"
)

// TelegramConfig defines the bot transport settings.
type TelegramConfig struct {
	BotToken    string        // TELEGRAM_BOT_TOKEN (required)
	PollTimeout time.Duration // TELEGRAM_POLL_TIMEOUT, long-poll wait per request
	Debug       bool          // TELEGRAM_DEBUG, verbose API logging
}

// LedgerConfig defines where completed leads are appended.
type LedgerConfig struct {
	Backend           string // LEDGER_BACKEND: sheets|sqlite
	SheetName         string // GOOGLE_SHEET_NAME, spreadsheet document name
	GoogleCredentials string // GOOGLE_CREDENTIALS (service-account JSON blob)
	DBPath            string // DB_PATH, SQLite file for the sqlite backend
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Transport
	Telegram TelegramConfig

	// Lead ledger
	Ledger LedgerConfig

	// Conversation policy
	SessionTTL     time.Duration // SESSION_TTL, idle sessions expire after this
	LeadTimeOffset time.Duration // LEAD_TIME_OFFSET, added to UTC for submitted_at

	// Per-chat flood limiting
	RateRPS   float64 // RATE_RPS, messages per second per chat (>= 0)
	RateBurst int     // RATE_BURST, bucket size (>= 1)

	// Ops HTTP server (health + metrics)
	Port         string        // just the number
	ReadTimeout  time.Duration // e.g. 15s
	WriteTimeout time.Duration // e.g. 20s
	IdleTimeout  time.Duration // e.g. 60s
	GinMode      string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
//
// Missing required credentials (the Telegram token, and the Google
// service-account blob when the sheets backend is selected) are reported as
// errors so the process refuses to start rather than run degraded.
func Load() (Config, error) {
	cfg := Config{
		Telegram: TelegramConfig{
			BotToken:    getenv("TELEGRAM_BOT_TOKEN", ""),
			PollTimeout: getdur("TELEGRAM_POLL_TIMEOUT", 30*time.Second),
			Debug:       getbool("TELEGRAM_DEBUG", false),
		},

		Ledger: LedgerConfig{
			Backend: strings.ToLower(getenv("LEDGER_BACKEND", LedgerBackendSheets)),
			// Document name only: the spreadsheet is resolved by name, as the
			// service account sees it.
			SheetName: getenv("GOOGLE_SHEET_NAME", "Leads"),
			GoogleCredentials: sysutil.FirstNonEmpty(
				os.Getenv("GOOGLE_CREDENTIALS"),
				os.Getenv("GOOGLE_CREDENTIALS_JSON"),
			),
			DBPath: getenv("DB_PATH", "leads.db"),
		},

		SessionTTL:     getdur("SESSION_TTL", 30*time.Minute),
		LeadTimeOffset: getdur("LEAD_TIME_OFFSET", 3*time.Hour),

		RateRPS:   getfloat("RATE_RPS", 1.0),
		RateBurst: getint("RATE_BURST", 5),

		Port:         getenv("PORT", "8080"),
		ReadTimeout:  getdur("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:  getdur("IDLE_TIMEOUT", 60*time.Second),
		GinMode:      strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "telegram-lead-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return cfg, errors.New("TELEGRAM_BOT_TOKEN must not be empty")
	}
	if cfg.Telegram.PollTimeout < time.Second {
		return cfg, errors.New("TELEGRAM_POLL_TIMEOUT must be at least 1s")
	}
	switch cfg.Ledger.Backend {
	case LedgerBackendSheets:
		if strings.TrimSpace(cfg.Ledger.GoogleCredentials) == "" {
			return cfg, errors.New("GOOGLE_CREDENTIALS must be set when LEDGER_BACKEND is sheets")
		}
		if strings.TrimSpace(cfg.Ledger.SheetName) == "" {
			return cfg, errors.New("GOOGLE_SHEET_NAME must not be empty")
		}
	case LedgerBackendSQLite:
		if strings.TrimSpace(cfg.Ledger.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	default:
		return cfg, errors.New("LEDGER_BACKEND must be one of: sheets, sqlite")
	}
	if cfg.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if cfg.LeadTimeOffset < 0 {
		return cfg, errors.New("LEAD_TIME_OFFSET must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
