package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	App        AppConfig
	Trade      TradeConfig
	Reputation ReputationConfig
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
	JWTSecret string
}

// TradeConfig holds trade lifecycle knobs
type TradeConfig struct {
	// MaxPendingPerGarment caps concurrent pending proposals against one garment.
	MaxPendingPerGarment int
	// ProposalTTL is how long a proposal may stay pending before the sweeper expires it.
	ProposalTTL time.Duration
	// SweepInterval is the period of the expiration sweeper.
	SweepInterval time.Duration
	// ExpiryWarningWindow is how close to expiry a pending proposal must be
	// before the sweeper emits a reminder.
	ExpiryWarningWindow time.Duration
}

// ReputationConfig holds the weighted-mean parameters
type ReputationConfig struct {
	// DimensionWeights maps dimension name to its weight in the blended score.
	DimensionWeights map[string]float64
	// OverallWeight is the weight of the direct overall score against the
	// dimension average.
	OverallWeight float64
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
			DBName:   getEnv("DB_NAME", "trueque"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Trade: TradeConfig{
			MaxPendingPerGarment: getEnvInt("TRADE_MAX_PENDING_PER_GARMENT", 3),
			ProposalTTL:          getEnvDuration("TRADE_PROPOSAL_TTL", 7*24*time.Hour),
			SweepInterval:        getEnvDuration("TRADE_SWEEP_INTERVAL", 10*time.Minute),
			ExpiryWarningWindow:  getEnvDuration("TRADE_EXPIRY_WARNING_WINDOW", 48*time.Hour),
		},
		Reputation: ReputationConfig{
			DimensionWeights: map[string]float64{
				"item_condition": getEnvFloat("REPUTATION_WEIGHT_ITEM_CONDITION", 0.4),
				"communication":  getEnvFloat("REPUTATION_WEIGHT_COMMUNICATION", 0.3),
				"punctuality":    getEnvFloat("REPUTATION_WEIGHT_PUNCTUALITY", 0.3),
			},
			OverallWeight: getEnvFloat("REPUTATION_WEIGHT_OVERALL", 0.5),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Trade.MaxPendingPerGarment < 1 {
		return nil, fmt.Errorf("TRADE_MAX_PENDING_PER_GARMENT must be at least 1")
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
