package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Log       LogConfig
	Valuation ValuationConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Pretty bool
}

// ValuationConfig holds the inputs of snapshot and performance calculations.
type ValuationConfig struct {
	BaseCurrency string
	// RiskFreeRate is the annual rate used by the Sharpe and Sortino ratios.
	RiskFreeRate float64
	// MaxPriceAge flags prices older than this as stale. Zero disables the check.
	MaxPriceAge time.Duration
	// FallbackRates maps a currency to its rate into BaseCurrency, used when
	// no stored rate exists on or before a valuation date.
	FallbackRates map[string]decimal.Decimal
}

// SchedulerConfig holds the daily snapshot job configuration
type SchedulerConfig struct {
	Enabled          bool
	SnapshotSchedule string // cron spec with seconds
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/portfolio_analytics.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Pretty: getEnv("LOG_PRETTY", "false") == "true",
		},
		Valuation: ValuationConfig{
			BaseCurrency: strings.ToUpper(getEnv("BASE_CURRENCY", "KWD")),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getEnv("SNAPSHOT_ENABLED", "true") == "true",
			SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "0 0 12 * * *"),
		},
	}

	var err error
	config.Valuation.RiskFreeRate, err = strconv.ParseFloat(getEnv("RISK_FREE_RATE", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RISK_FREE_RATE: %w", err)
	}

	days, err := strconv.Atoi(getEnv("MAX_PRICE_AGE_DAYS", "7"))
	if err != nil || days < 0 {
		return nil, fmt.Errorf("invalid MAX_PRICE_AGE_DAYS %q", os.Getenv("MAX_PRICE_AGE_DAYS"))
	}
	config.Valuation.MaxPriceAge = time.Duration(days) * 24 * time.Hour

	config.Valuation.FallbackRates, err = ParseFallbackRates(getEnv("FALLBACK_FX_RATES", ""))
	if err != nil {
		return nil, err
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// ParseFallbackRates parses "USD:0.307190,EUR:0.33" into a currency to rate map.
// Rates must be positive.
func ParseFallbackRates(s string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, entry := range splitList(s) {
		code, value, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("invalid FALLBACK_FX_RATES entry %q: want CODE:RATE", entry)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid FALLBACK_FX_RATES rate for %s: %q", code, value)
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return rates, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
