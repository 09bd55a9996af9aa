package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL string

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Queue configuration
	ServiceTimeMinutes int
	MaxPartySize       int
	ObserverBuffer     int

	// Analytics
	HistoryRetention time.Duration
	StatsTimezone    string

	// Staff access
	StaffPassword     string
	StaffPasswordHash string
	StaffTokenTTL     time.Duration

	// Rate limiting
	JoinRateLimit int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

// LoadConfig reads the environment, seeding it from a .env file when one is
// present in the working directory.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("godotenv.Load()", "error", err)
	}

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "localhost:6379"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Queue
		ServiceTimeMinutes: getEnvAsInt("SERVICE_TIME_MINUTES", 15),
		MaxPartySize:       getEnvAsInt("MAX_PARTY_SIZE", 20),
		ObserverBuffer:     getEnvAsInt("HUB_OBSERVER_BUFFER", 64),

		// Analytics
		HistoryRetention: getEnvAsDuration("HISTORY_RETENTION", "2160h"),
		StatsTimezone:    getEnv("STATS_TIMEZONE", "Local"),

		// Staff
		StaffPassword:     getEnv("STAFF_PASSWORD", ""),
		StaffPasswordHash: getEnv("STAFF_PASSWORD_HASH", ""),
		StaffTokenTTL:     getEnvAsDuration("STAFF_TOKEN_TTL", "12h"),

		// Rate limiting
		JoinRateLimit: getEnvAsInt("JOIN_RATE_LIMIT", 30),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func (c *Config) Validate() error {
	if c.ServiceTimeMinutes <= 0 {
		return fmt.Errorf("config: SERVICE_TIME_MINUTES must be positive, got %d", c.ServiceTimeMinutes)
	}
	if c.ObserverBuffer <= 0 {
		return fmt.Errorf("config: HUB_OBSERVER_BUFFER must be positive, got %d", c.ObserverBuffer)
	}
	if c.MaxPartySize < 0 {
		return fmt.Errorf("config: MAX_PARTY_SIZE must not be negative, got %d", c.MaxPartySize)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: STATS_TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves StatsTimezone; "Local" and "" mean the server zone.
func (c *Config) Location() (*time.Location, error) {
	if c.StatsTimezone == "" || c.StatsTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.StatsTimezone)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
