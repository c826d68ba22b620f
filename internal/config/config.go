package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Solana   SolanaConfig
	Jupiter  JupiterConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret        string
	TradingFeeBps    int64  // protocol fee in basis points
	FeeWalletAddress string // fee collection destination; empty disables the fee rail
}

// SolanaConfig holds Solana RPC and server wallet settings
type SolanaConfig struct {
	Network                string // mainnet-beta, devnet, testnet
	RPCURL                 string // optional override of the public endpoint
	ServerWalletPrivateKey string // base58, pays reward payouts
}

// JupiterConfig holds the swap aggregator settings
type JupiterConfig struct {
	BaseURL string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	feeBps, err := strconv.ParseInt(getEnv("TRADING_FEE_BPS", "100"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TRADING_FEE_BPS: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "trade_router"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:        getEnv("JWT_SECRET", ""),
			TradingFeeBps:    feeBps,
			FeeWalletAddress: getEnv("FEE_WALLET_ADDRESS", ""),
		},
		Solana: SolanaConfig{
			Network:                getEnv("SOLANA_NETWORK", "devnet"),
			RPCURL:                 getEnv("SOLANA_RPC_URL", ""),
			ServerWalletPrivateKey: getEnv("SERVER_WALLET_PRIVATE_KEY", ""),
		},
		Jupiter: JupiterConfig{
			BaseURL: getEnv("JUPITER_BASE_URL", "https://quote-api.jup.ag/v6"),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.App.TradingFeeBps < 0 || config.App.TradingFeeBps > 10000 {
		return nil, fmt.Errorf("TRADING_FEE_BPS must be between 0 and 10000")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
