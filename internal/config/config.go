package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	App        AppConfig
	Settlement SettlementConfig
	Oracle     OracleConfig
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
	JWTSecret     string
	TriggerSecret string // shared-secret bearer credential for scheduler triggers
}

// SettlementConfig holds the settlement state machine windows and bond rules
type SettlementConfig struct {
	ContestWindow     time.Duration
	VoteWindow        time.Duration
	MaxContestRounds  int
	CreatorBondAmount decimal.Decimal // zero disables creator bonds
	MinContestBond    decimal.Decimal
	TreasuryUserID    uint // receives slashed bonds with no counterparty
	ScanBatchLimit    int
}

// OracleConfig holds the external resolution oracle settings
type OracleConfig struct {
	GatewayURL       string
	RequestTimeout   time.Duration
	DefaultLiveness  time.Duration
	SolanaNetwork    string
	WalletPrivateKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "forecast_market"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			TriggerSecret: getEnv("TRIGGER_SECRET", ""),
		},
		Settlement: SettlementConfig{
			ContestWindow:     getEnvDuration("SETTLEMENT_CONTEST_WINDOW", 24*time.Hour),
			VoteWindow:        getEnvDuration("SETTLEMENT_VOTE_WINDOW", 48*time.Hour),
			MaxContestRounds:  getEnvInt("SETTLEMENT_MAX_CONTEST_ROUNDS", 1),
			CreatorBondAmount: getEnvDecimal("SETTLEMENT_CREATOR_BOND", "0"),
			MinContestBond:    getEnvDecimal("SETTLEMENT_MIN_CONTEST_BOND", "10.00"),
			TreasuryUserID:    uint(getEnvInt("SETTLEMENT_TREASURY_USER_ID", 1)),
			ScanBatchLimit:    getEnvInt("SETTLEMENT_SCAN_BATCH_LIMIT", 100),
		},
		Oracle: OracleConfig{
			GatewayURL:       getEnv("ORACLE_GATEWAY_URL", ""),
			RequestTimeout:   getEnvDuration("ORACLE_REQUEST_TIMEOUT", 15*time.Second),
			DefaultLiveness:  getEnvDuration("ORACLE_DEFAULT_LIVENESS", 2*time.Hour),
			SolanaNetwork:    getEnv("SOLANA_NETWORK", "devnet"),
			WalletPrivateKey: getEnv("SOLANA_WALLET_PRIVATE_KEY", ""),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.App.TriggerSecret == "" {
		return nil, fmt.Errorf("TRIGGER_SECRET is required")
	}

	if config.Settlement.MaxContestRounds < 1 {
		return nil, fmt.Errorf("SETTLEMENT_MAX_CONTEST_ROUNDS must be at least 1")
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

// getEnvInt gets an integer environment variable with a fallback default
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDuration gets a duration environment variable with a fallback default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvDecimal gets a decimal environment variable with a fallback default
func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		d, _ = decimal.NewFromString(defaultValue)
	}
	return d
}
