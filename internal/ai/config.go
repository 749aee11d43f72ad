// Package ai provides the generation provider adapter: the single narrow
// interface through which the pipeline invokes the opaque AI capability.
package ai

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ProviderName identifies a generation provider implementation.
type ProviderName string

const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini ProviderName = "gemini"
)

// Config holds provider configuration.
type Config struct {
	Provider     ProviderName
	DefaultModel string
	// Timeout bounds a single generation call. Queued jobs stuck in the
	// generating state past this are swept to failed.
	Timeout time.Duration
}

// DefaultConfig returns the default provider configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:     ProviderGemini,
		DefaultModel: "gemini-2.5-flash",
		Timeout:      2 * time.Minute,
	}
}

// LoadConfig builds a provider configuration from environment variables,
// falling back to defaults: AI_MODEL and AI_TIMEOUT_SECONDS.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if model := os.Getenv("AI_MODEL"); model != "" {
		cfg.DefaultModel = model
	}

	if timeoutStr := os.Getenv("AI_TIMEOUT_SECONDS"); timeoutStr != "" {
		seconds, err := strconv.Atoi(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid AI_TIMEOUT_SECONDS: %v", err)
		}
		if seconds < 1 {
			return nil, fmt.Errorf("AI_TIMEOUT_SECONDS must be at least 1, got: %d", seconds)
		}
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	return cfg, nil
}

// Model returns the model to use for a request, falling back to the
// configured default when the request does not name one.
func (c *Config) Model(requested string) string {
	if requested != "" {
		return requested
	}
	return c.DefaultModel
}
