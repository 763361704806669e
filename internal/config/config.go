package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the estimation portal server.
type Config struct {
	Port      int
	Version   string
	DataDir   string
	Database  DatabaseConfig
	Gemini    GeminiConfig
	Webhook   WebhookConfig
	Quota     QuotaConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

type DatabaseConfig struct {
	// URL is optional; when empty the server runs on the snapshot store.
	URL            string
	MaxConnections int
}

type GeminiConfig struct {
	APIKey        string
	EstimateModel string
	PriceModel    string
	ChatModel     string
}

type WebhookConfig struct {
	// URL of the lead-capture endpoint. Empty disables forwarding.
	URL string
	// Secret signs outgoing payloads when set.
	Secret string
}

type QuotaConfig struct {
	FreeLimit int
	Cooldown  time.Duration
}

type CacheConfig struct {
	EstimateTTL time.Duration
	PriceTTL    time.Duration
	MaxEntries  int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("PORTAL_PORT", 8080),
		Version: envStr("PORTAL_VERSION", "1.4.0"),
		DataDir: envStr("PORTAL_DATA_DIR", "data"),
		Database: DatabaseConfig{
			URL:            envStr("DATABASE_URL", ""),
			MaxConnections: envInt("DATABASE_MAX_CONNECTIONS", 10),
		},
		Gemini: GeminiConfig{
			APIKey:        envStr("GEMINI_API_KEY", ""),
			EstimateModel: envStr("PORTAL_ESTIMATE_MODEL", "gemini-3-pro-preview"),
			PriceModel:    envStr("PORTAL_PRICE_MODEL", "gemini-3-flash-preview"),
			ChatModel:     envStr("PORTAL_CHAT_MODEL", "gemini-3-flash-preview"),
		},
		Webhook: WebhookConfig{
			URL:    envStr("PORTAL_WEBHOOK_URL", ""),
			Secret: envStr("PORTAL_WEBHOOK_SECRET", ""),
		},
		Quota: QuotaConfig{
			FreeLimit: envInt("PORTAL_FREE_LIMIT", 3),
			Cooldown:  envDur("PORTAL_UPGRADE_COOLDOWN", 2*time.Minute),
		},
		Cache: CacheConfig{
			EstimateTTL: envDur("PORTAL_ESTIMATE_TTL", time.Hour),
			PriceTTL:    envDur("PORTAL_PRICE_TTL", 24*time.Hour),
			MaxEntries:  envInt("PORTAL_CACHE_MAX_ENTRIES", 512),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "estimation-portal"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
