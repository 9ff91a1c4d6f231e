// package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	// telegram
	TGApiID      int
	TGApiHash    string
	TGSessionStr string

	// session persistence
	SessionDB string

	// fetching
	FetchLimit  int     // messages requested per stats computation
	TGRateLimit float64 // requests per second to the telegram api

	// server
	HTTPPort       int
	RequestsPerMin int // http rate limit per client ip

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		TGApiID:        getEnvInt("TG_API_ID", 0),
		TGApiHash:      getEnv("TG_API_HASH", ""),
		TGSessionStr:   getEnv("TG_SESSION_STRING", ""),
		SessionDB:      getEnv("SESSION_DB", "./grouppulse_session.db"),
		FetchLimit:     getEnvInt("FETCH_LIMIT", 500),
		TGRateLimit:    getEnvFloat("TG_RATE_LIMIT", 2.0),
		HTTPPort:       getEnvInt("HTTP_PORT", 8000),
		RequestsPerMin: getEnvInt("REQUESTS_PER_MINUTE", 100),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
