package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"courier/internal/logger"
)

type Config struct {
	// Storage Configuration
	DBPath       string
	SettingsFile string
	AsyncSave    bool

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		DBPath:        getEnv("COURIER_DB_PATH", "./data/courier.db"),
		SettingsFile:  getEnv("COURIER_SETTINGS_FILE", "./settings.json"),
		AsyncSave:     getEnvBool("COURIER_ASYNC_SAVE", true),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("COURIER_DB_PATH is required")
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
