// Copyright 2025 Joseph Cumines
//
// Configuration package for the MCP tool

package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the configuration for the MCP tool
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Config struct {
	BridgeAddr        string
	BridgeCertFile    string
	AuditLogPath      string
	RequestTimeout    time.Duration
	DefaultFetchDepth int
	MaxFindResults    int
	RateLimitRPS      int
	BridgeTLS         bool
	Debug             bool
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	requestTimeout, err := getEnvAsDuration("UIPATH_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	fetchDepth, err := getEnvAsInt("UIPATH_DEFAULT_FETCH_DEPTH", 15)
	if err != nil {
		return nil, err
	}

	maxFind, err := getEnvAsInt("UIPATH_MAX_FIND_RESULTS", 100)
	if err != nil {
		return nil, err
	}

	rateLimit, err := getEnvAsInt("MCP_RATE_LIMIT_RPS", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BridgeAddr:        getEnv("UIPATH_BRIDGE_ADDR", "localhost:50051"),
		BridgeTLS:         getEnvAsBool("UIPATH_BRIDGE_TLS", false),
		BridgeCertFile:    os.Getenv("UIPATH_BRIDGE_CERT_FILE"),
		AuditLogPath:      os.Getenv("UIPATH_AUDIT_LOG"),
		RequestTimeout:    requestTimeout,
		DefaultFetchDepth: fetchDepth,
		MaxFindResults:    maxFind,
		RateLimitRPS:      rateLimit,
		Debug:             getEnvAsBool("UIPATH_DEBUG", false),
	}

	if cfg.BridgeAddr == "" {
		return nil, fmt.Errorf("bridge address cannot be empty")
	}
	if cfg.DefaultFetchDepth < 1 {
		return nil, fmt.Errorf("invalid fetch depth %d (must be >= 1)", cfg.DefaultFetchDepth)
	}
	if cfg.MaxFindResults < 1 {
		return nil, fmt.Errorf("invalid max find results %d (must be >= 1)", cfg.MaxFindResults)
	}
	if cfg.RateLimitRPS < 0 {
		return nil, fmt.Errorf("invalid rate limit %d (must be >= 0, 0 disables)", cfg.RateLimitRPS)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var result int
	_, err := fmt.Sscanf(value, "%d", &result)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected integer)", key, value)
	}
	return result, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected duration, e.g., '30s', '5m')", key, value)
	}
	return d, nil
}
