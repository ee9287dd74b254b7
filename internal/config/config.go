// Package config provides configuration management for the inbox snapshot service.
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
	Server     ServerConfig
	Database   DatabaseConfig
	Mailbox    MailboxConfig
	Summarizer SummarizerConfig
	Snapshot   SnapshotConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
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

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// MailboxConfig holds IMAP mailbox provider configuration
type MailboxConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	TLS          bool
	FetchTimeout time.Duration
}

// SummarizerConfig holds summarization provider configuration
type SummarizerConfig struct {
	OpenAIKey string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// SnapshotConfig holds snapshot pipeline configuration
type SnapshotConfig struct {
	RetentionWindow time.Duration // how long a snapshot survives before the sweeper deletes it
	SweepInterval   time.Duration
	MaxFetchCeiling int // hard global ceiling on messages fetched per snapshot
	LockTTL         time.Duration
}

// RateLimitConfig holds per-tier request rate limits (requests per second)
type RateLimitConfig struct {
	FreeTier    int
	TrialTier   int
	StarterTier int
	ProTier     int
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
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "inbox_snapshot"),
				User:           getEnv("POSTGRES_USER", "snapshot"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "inbox_snapshot"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		Mailbox: MailboxConfig{
			Host:         getEnv("IMAP_HOST", ""),
			Port:         getEnv("IMAP_PORT", "993"),
			Username:     getEnv("IMAP_USERNAME", ""),
			Password:     getEnv("IMAP_PASSWORD", ""),
			TLS:          getEnvAsBool("IMAP_TLS", true),
			FetchTimeout: getEnvAsDuration("IMAP_FETCH_TIMEOUT", 30*time.Second),
		},
		Summarizer: SummarizerConfig{
			OpenAIKey: getEnv("OPENAI_API_KEY", ""),
			Model:     getEnv("OPENAI_MODEL", ""),
			MaxTokens: getEnvAsInt("OPENAI_MAX_TOKENS", 200),
			Timeout:   getEnvAsDuration("SUMMARIZER_TIMEOUT", 20*time.Second),
		},
		Snapshot: SnapshotConfig{
			RetentionWindow: getEnvAsDuration("SNAPSHOT_RETENTION_WINDOW", 72*time.Hour),
			SweepInterval:   getEnvAsDuration("SNAPSHOT_SWEEP_INTERVAL", 1*time.Hour),
			MaxFetchCeiling: getEnvAsInt("SNAPSHOT_MAX_FETCH", 50),
			LockTTL:         getEnvAsDuration("SNAPSHOT_LOCK_TTL", 2*time.Minute),
		},
		RateLimit: RateLimitConfig{
			FreeTier:    getEnvAsInt("RATE_LIMIT_FREE_TIER", 5),
			TrialTier:   getEnvAsInt("RATE_LIMIT_TRIAL_TIER", 10),
			StarterTier: getEnvAsInt("RATE_LIMIT_STARTER_TIER", 20),
			ProTier:     getEnvAsInt("RATE_LIMIT_PRO_TIER", 50),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// PostgresURL builds a database URL for migrations
func (c *PostgresConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
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

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
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
