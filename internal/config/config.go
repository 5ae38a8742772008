package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DatabaseConfig carries the Store Gateway's postgres connection
// parameters (spec.md §6).
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CEXConfig carries OKX credentials and trading pair (spec.md §6).
type CEXConfig struct {
	BaseURL      string
	APIKey       string
	Secret       string
	Passphrase   string
	Symbol       string
	StartEpochMs int64
}

// DEXConfig carries the Snowtrace-shaped explorer credentials and chain
// parameters (spec.md §6).
type DEXConfig struct {
	ExplorerBaseURL string
	APIKey          string
	TokenContract   string
	Wallet          string
	BaseToken       string
	QuoteToken      string
	BaseDecimals    int32
	QuoteDecimals   int32
	StartBlock      int64
}

// Config is the root configuration for the order-fill-tracker service,
// assembled the way the teacher's config.Load assembles Config: one
// struct literal built from getEnv* helpers, validated once at startup.
type Config struct {
	Debug bool

	DB  DatabaseConfig
	CEX CEXConfig
	DEX DEXConfig

	// Tailing Reader / Dispatcher tunables (spec.md §4.6/§4.7).
	MinOrderSize      decimal.Decimal
	FetchPageSize     int
	PollInterval      time.Duration
	BufferCapacity    int
	DispatchBatchSize int
	ConcurrencyCap    int

	// CEX reconciler age gate (spec.md §4.4 step 1); 0 disables it.
	CEXAgeGateMs int64
}

func Load() (*Config, error) {
	cfg := &Config{
		Debug: getEnvBool("DEBUG", false),

		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "order_fill_tracker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		CEX: CEXConfig{
			BaseURL:      getEnv("OKX_BASE_URL", "https://www.okx.com"),
			APIKey:       os.Getenv("OKX_API_KEY"),
			Secret:       os.Getenv("OKX_SECRET"),
			Passphrase:   os.Getenv("OKX_PASSPHRASE"),
			Symbol:       getEnv("OKX_SYMBOL", "AVAX-USDT"),
			StartEpochMs: getEnvInt64("OKX_START_EPOCH_MS", 0),
		},

		DEX: DEXConfig{
			ExplorerBaseURL: getEnv("SNOWTRACE_BASE_URL", "https://api.snowtrace.io/api"),
			APIKey:          os.Getenv("SNOWTRACE_API_KEY"),
			TokenContract:   os.Getenv("USDT_ON_AVAX_CONTRACT_ADDRESS"),
			Wallet:          os.Getenv("TJ_WALLET_ADDRESS"),
			BaseToken:       getEnv("DEX_BASE_TOKEN", "AVAX"),
			QuoteToken:      getEnv("DEX_QUOTE_TOKEN", "USDT"),
			BaseDecimals:    int32(getEnvInt("DEX_BASE_DECIMALS", 18)),
			QuoteDecimals:   int32(getEnvInt("DEX_QUOTE_DECIMALS", 6)),
			StartBlock:      getEnvInt64("DEX_START_BLOCK", 0),
		},

		MinOrderSize:      getEnvDecimal("MIN_ORDER_SIZE", decimal.NewFromInt(1020)),
		FetchPageSize:     getEnvInt("FETCH_PAGE_SIZE", 100),
		PollInterval:      getEnvDuration("POLL_INTERVAL", 90*time.Second),
		BufferCapacity:    getEnvInt("BUFFER_CAPACITY", 1000),
		DispatchBatchSize: getEnvInt("DISPATCH_BATCH_SIZE", 10),
		ConcurrencyCap:    getEnvInt("CONCURRENCY_CAP", 5),

		CEXAgeGateMs: getEnvInt64("CEX_AGE_GATE_MS", 0),
	}

	if cfg.CEX.APIKey == "" {
		return nil, fmt.Errorf("OKX_API_KEY is required")
	}
	if cfg.DEX.Wallet == "" {
		return nil, fmt.Errorf("TJ_WALLET_ADDRESS is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
