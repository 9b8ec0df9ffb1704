package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// CoreConfig holds the environment configuration for the market-intelligence
// data-plane core (spec §6), grounded on this package's existing Load/
// Validate shape: .env loaded first (if present), then overridden by
// process environment, with documented defaults.
type CoreConfig struct {
	TopicPrefix  string
	AdminAPIKey  string
	LogLevel     string
	LogPretty    bool
	HTTPPort     int

	// Per-collector enable flags and settings. Flags default to disabled.
	// FRED is the only collector with a credential: COLLECTOR_FRED_ENABLED
	// without FRED_API_KEY fails Validate, so LoadCore returns an error and
	// startup aborts instead of skipping that collector.
	BinanceEnabled   bool
	BinanceWSURL     string
	RSSEnabled       bool
	RSSFeedURLs      []string
	FREDEnabled      bool
	FREDAPIKey       string
	FREDSeriesIDs    []string
	TruncgilEnabled  bool

	WarehouseBucket string
	WarehousePrefix string

	QuotaDBPath string
}

// LoadCore reads .env (if present) then process environment, applying
// defaults for anything unset.
func LoadCore() (*CoreConfig, error) {
	_ = godotenv.Load()

	cfg := &CoreConfig{
		TopicPrefix: getEnv("TOPIC_PREFIX", ""),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPretty:   getEnvBool("LOG_PRETTY", false),
		HTTPPort:    getEnvInt("HTTP_PORT", 8090),

		BinanceEnabled: getEnvBool("COLLECTOR_BINANCE_ENABLED", false),
		BinanceWSURL:   getEnv("BINANCE_WS_URL", "wss://stream.binance.com:9443/ws/!ticker@arr"),

		RSSEnabled:  getEnvBool("COLLECTOR_RSS_ENABLED", false),
		RSSFeedURLs: getEnvList("RSS_FEED_URLS"),

		FREDEnabled:   getEnvBool("COLLECTOR_FRED_ENABLED", false),
		FREDAPIKey:    getEnv("FRED_API_KEY", ""),
		FREDSeriesIDs: getEnvList("FRED_SERIES_IDS"),

		TruncgilEnabled: getEnvBool("COLLECTOR_TRUNCGIL_ENABLED", false),

		WarehouseBucket: getEnv("WAREHOUSE_S3_BUCKET", ""),
		WarehousePrefix: getEnv("WAREHOUSE_S3_PREFIX", "marketcore"),

		QuotaDBPath: getEnv("QUOTA_DB_PATH", "./data/quota.db"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime errors deep inside a collector.
func (c *CoreConfig) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: HTTP_PORT %d out of range", c.HTTPPort)
	}
	if c.FREDEnabled && c.FREDAPIKey == "" {
		return fmt.Errorf("config: COLLECTOR_FRED_ENABLED set but FRED_API_KEY missing")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
