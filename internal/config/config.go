// Package config provides configuration loading and validation for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the service configuration, read from environment variables.
type Config struct {
	Port        int
	DatabaseURL string
	// GeminiAPIKey authenticates the generation provider.
	GeminiAPIKey string
	// AppEnv selects logging defaults ("development" or "production").
	AppEnv string
	// SweepIntervalSeconds controls how often stale generating jobs are
	// forced to failed.
	SweepIntervalSeconds int
}

// Load builds the service configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 8080,
		AppEnv:               "production",
		SweepIntervalSeconds: 60,
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.AppEnv = env
	}

	if sweepStr := os.Getenv("SWEEP_INTERVAL_SECONDS"); sweepStr != "" {
		seconds, err := strconv.Atoi(sweepStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL_SECONDS: %v", err)
		}
		if seconds < 1 {
			return nil, fmt.Errorf("SWEEP_INTERVAL_SECONDS must be at least 1, got: %d", seconds)
		}
		cfg.SweepIntervalSeconds = seconds
	}

	return cfg, nil
}
