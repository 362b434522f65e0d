// Package config provides configuration management for the swap notifier.
// It loads configuration from environment variables and .env files.
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
	Server   ServerConfig
	Database DatabaseConfig
	Indexer  IndexerConfig
	Telegram TelegramConfig
	Poll     PollConfig
	Logging  LoggingConfig
}

// ServerConfig holds the admin HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// IndexerConfig holds the swap indexer API configuration
type IndexerConfig struct {
	APIKey            string
	BaseURL           string
	PageSize          int
	RequestsPerSecond float64
}

// TelegramConfig holds the messaging transport configuration
type TelegramConfig struct {
	BotToken        string
	MaxRetries      int           // delivery attempts before a send is failed
	RetryDelay      time.Duration // fixed delay between ordinary retries
	RequeueMargin   time.Duration // safety margin added to throttle requeues
	DefaultCooldown time.Duration // cool-down when the transport omits retry-after
}

// PollConfig holds the periodic-job configuration
type PollConfig struct {
	FetchInterval    time.Duration
	ProcessInterval  time.Duration
	CleanupInterval  time.Duration
	MetadataInterval time.Duration
	ProcessBatchSize int           // unprocessed swaps handled per pair per pass
	RetentionPeriod  time.Duration // processed swaps older than this are deleted
	MetadataCacheTTL time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "swap_notifier"),
				User:           getEnv("POSTGRES_USER", "notifier"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Indexer: IndexerConfig{
			APIKey:            getEnv("MORALIS_API_KEY", ""),
			BaseURL:           getEnv("MORALIS_BASE_URL", "https://deep-index.moralis.io/api/v2.2"),
			PageSize:          getEnvAsInt("INDEXER_PAGE_SIZE", 100),
			RequestsPerSecond: getEnvAsFloat("INDEXER_REQUESTS_PER_SECOND", 3.0),
		},
		Telegram: TelegramConfig{
			BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
			MaxRetries:      getEnvAsInt("TELEGRAM_MAX_RETRIES", 3),
			RetryDelay:      getEnvAsDuration("TELEGRAM_RETRY_DELAY", time.Second),
			RequeueMargin:   getEnvAsDuration("TELEGRAM_REQUEUE_MARGIN", 100*time.Millisecond),
			DefaultCooldown: getEnvAsDuration("TELEGRAM_DEFAULT_COOLDOWN", 10*time.Second),
		},
		Poll: PollConfig{
			FetchInterval:    getEnvAsDuration("FETCH_INTERVAL", 30*time.Second),
			ProcessInterval:  getEnvAsDuration("PROCESS_INTERVAL", 10*time.Second),
			CleanupInterval:  getEnvAsDuration("CLEANUP_INTERVAL", 24*time.Hour),
			MetadataInterval: getEnvAsDuration("METADATA_INTERVAL", time.Minute),
			ProcessBatchSize: getEnvAsInt("PROCESS_BATCH_SIZE", 50),
			RetentionPeriod:  getEnvAsDuration("RETENTION_PERIOD", 30*24*time.Hour),
			MetadataCacheTTL: getEnvAsDuration("METADATA_CACHE_TTL", time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
