package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// HTTP configuration
	HTTPPort int

	// Redis configuration (optional; leaderboards fall back to SQL)
	RedisAddr     string
	RedisPassword string

	// Discord announcement configuration (optional)
	DiscordToken     string
	DiscordChannelID string

	// Economy settings
	StartingBalance int64
	PlinkoMinBet    int64
	PlinkoMaxBet    int64
	TxRetryAttempts int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		HTTPPort:         8080,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		// Economy defaults
		StartingBalance: 1000,
		PlinkoMinBet:    1,
		PlinkoMaxBet:    10000,
		TxRetryAttempts: 3,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if port := os.Getenv("HTTP_PORT"); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_PORT: %w", err)
		}
		config.HTTPPort = parsed
	}
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsed, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsed
		}
	}
	if minBet := os.Getenv("PLINKO_MIN_BET"); minBet != "" {
		if parsed, err := strconv.ParseInt(minBet, 10, 64); err == nil {
			config.PlinkoMinBet = parsed
		}
	}
	if maxBet := os.Getenv("PLINKO_MAX_BET"); maxBet != "" {
		if parsed, err := strconv.ParseInt(maxBet, 10, 64); err == nil {
			config.PlinkoMaxBet = parsed
		}
	}
	if attempts := os.Getenv("TX_RETRY_ATTEMPTS"); attempts != "" {
		if parsed, err := strconv.Atoi(attempts); err == nil && parsed > 0 {
			config.TxRetryAttempts = parsed
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
