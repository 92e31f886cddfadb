package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	CurrencyCode string
	Timezone     string

	TaxRateBps      int
	SeniorPWDBps    int
	PiecesPerBox    int
	PiecesPerSheet  int
	LowStockDefault int

	SessionTTL    time.Duration
	CatalogTTL    time.Duration
	IdempotentTTL time.Duration

	RateLimit string

	ReceiptEmailTo string
	WebhookURL     string
	WebhookSecret  string

	LogFormat string
	LogLevel  string

	MetricsNamespace   string
	HTTPMetricsBuckets string
	TracingEnabled     bool
	TracingEndpoint    string
	TracingSampling    float64

	PprofEnabled bool
	PprofUser    string
	PprofPass    string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CurrencyCode: valueOrDefault(k.String("CURRENCY_CODE"), "PHP"),
		Timezone:     valueOrDefault(k.String("TIMEZONE"), "Asia/Manila"),

		TaxRateBps:      parseInt(k.String("PRICING_TAX_RATE_BPS"), 1200),
		SeniorPWDBps:    parseInt(k.String("DISCOUNT_SENIOR_PWD_BPS"), 2000),
		PiecesPerBox:    parseInt(k.String("CATALOG_PIECES_PER_BOX"), 12),
		PiecesPerSheet:  parseInt(k.String("CATALOG_PIECES_PER_SHEET"), 1),
		LowStockDefault: parseInt(k.String("CATALOG_LOW_STOCK_THRESHOLD"), 10),

		SessionTTL:    parseDuration(k.String("SESSION_TTL"), "4h"),
		CatalogTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotentTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		RateLimit: valueOrDefault(k.String("RATE_LIMIT"), "300-M"),

		ReceiptEmailTo: strings.TrimSpace(k.String("RECEIPT_EMAIL_TO")),
		WebhookURL:     strings.TrimSpace(k.String("WEBHOOK_URL")),
		WebhookSecret:  k.String("WEBHOOK_SECRET"),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), "pos"),
		HTTPMetricsBuckets: strings.TrimSpace(k.String("OBS_HTTP_BUCKETS")),
		TracingEnabled:     parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint:    strings.TrimSpace(k.String("TRACING_ENDPOINT")),
		TracingSampling:    parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1),

		PprofEnabled: parseBool(valueOrDefault(k.String("OBS_ENABLE_PPROF"), "true")),
		PprofUser:    strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:    strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.TaxRateBps < 0 || cfg.TaxRateBps > 10000 {
		return nil, errors.New("PRICING_TAX_RATE_BPS must be between 0 and 10000")
	}
	if cfg.SeniorPWDBps < 0 || cfg.SeniorPWDBps > 10000 {
		return nil, errors.New("DISCOUNT_SENIOR_PWD_BPS must be between 0 and 10000")
	}
	if cfg.WebhookURL != "" && cfg.WebhookSecret == "" {
		return nil, errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
