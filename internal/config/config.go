package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Chain
	ChainRPCURL     string
	ChainID         int64
	TreasuryAddress string

	// Price feed
	PriceFeedURL         string
	PriceCacheTTLSeconds int

	// Economics
	TargetRewardUSD   float64
	MarginBps         int
	MinPayoutEth      float64
	MaxPayoutEth      float64
	PayoutEthOverride float64
	ChargeEthOverride float64

	// Play gate
	DebtThreshold int

	// Settlement
	ReceiptCheckIntervalMinutes int

	// Security
	JWTSecret    string
	AdminKeyHash string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/gridstake?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Chain
		ChainRPCURL:     getEnv("CHAIN_RPC_URL", ""),
		ChainID:         int64(getEnvInt("CHAIN_ID", 8453)),
		TreasuryAddress: getEnv("TREASURY_ADDRESS", ""),

		// Price feed
		PriceFeedURL:         getEnv("PRICE_FEED_URL", "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd"),
		PriceCacheTTLSeconds: getEnvInt("PRICE_CACHE_TTL_SECONDS", 300),

		// Economics
		TargetRewardUSD:   getEnvFloat("TARGET_REWARD_USD", 1.0),
		MarginBps:         getEnvInt("MARGIN_BPS", 1000),
		MinPayoutEth:      getEnvFloat("MIN_PAYOUT_ETH", 0.00005),
		MaxPayoutEth:      getEnvFloat("MAX_PAYOUT_ETH", 0.01),
		PayoutEthOverride: getEnvFloat("PAYOUT_ETH_OVERRIDE", 0),
		ChargeEthOverride: getEnvFloat("CHARGE_ETH_OVERRIDE", 0),

		// Play gate
		DebtThreshold: getEnvInt("DEBT_THRESHOLD", 1),

		// Settlement
		ReceiptCheckIntervalMinutes: getEnvInt("RECEIPT_CHECK_INTERVAL_MINUTES", 2),

		// Security
		JWTSecret:    getEnv("JWT_SECRET", "change-me-in-production"),
		AdminKeyHash: getEnv("ADMIN_KEY_HASH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
