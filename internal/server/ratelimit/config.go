package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for one endpoint
// tier. Paths ending in "/" are prefix matches.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // maximum requests per window
	Window time.Duration // time window
	Burst  int           // burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	EndpointConfigs []EndpointConfig
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	enabled := getEnvBool("RATE_LIMIT_ENABLED", true)
	if !enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the endpoint-tier configurations.
// Generation kicks off provider work and gets the strictest limits; the
// review queue is polled and stays lenient under the default.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/generation/jobs", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/generation/stream", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/autonomous/trigger", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},

		{Path: "/content/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/content/bulk-approve", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/content/bulk-reject", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
	}
}

// match resolves the endpoint tier for a request, falling back to the
// default limit.
func (c *Config) match(path, method string) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &EndpointConfig{Limit: 0} // unlimited
	}

	for i := range c.EndpointConfigs {
		cfg := &c.EndpointConfigs[i]
		if cfg.Path == path && cfg.Method == method {
			return cfg
		}
	}
	for i := range c.EndpointConfigs {
		cfg := &c.EndpointConfigs[i]
		if cfg.Method == method && strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) {
			return cfg
		}
	}

	return &EndpointConfig{
		Limit:  c.DefaultLimit,
		Window: c.DefaultWindow,
		Burst:  c.DefaultLimit,
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
