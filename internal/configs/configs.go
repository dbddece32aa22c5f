/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, durable store location,
connection pool sizing, and the presence reaper timings.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Durable Store Settings
	DatabasePath     string
	DBPoolSize       int
	DBAcquireTimeout time.Duration

	// Presence Settings
	ReapThreshold time.Duration
	ReapInterval  time.Duration

	// Invite Settings
	InviteTTL        time.Duration
	InviteInboxLimit int
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
// It returns a pointer to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Durable Store Settings ---
	cfg.DatabasePath = os.Getenv("DATABASE_PATH")
	if cfg.DatabasePath == "" {
		if cfg.Environment == "development" {
			cfg.DatabasePath = "lklobby.db"
		} else {
			return nil, fmt.Errorf("DATABASE_PATH environment variable is required in %s environment", cfg.Environment)
		}
	}

	cfg.DBPoolSize, err = intEnv("DB_POOL_SIZE", 5)
	if err != nil {
		return nil, err
	}
	if cfg.DBPoolSize < 1 {
		return nil, fmt.Errorf("DB_POOL_SIZE must be at least 1, got %d", cfg.DBPoolSize)
	}

	cfg.DBAcquireTimeout, err = durationEnv("DB_ACQUIRE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	// --- Presence Settings ---
	// Defaults follow the tightened disconnect-detection constants: a user is
	// considered stale after 45s of inactivity, checked every 10s.
	cfg.ReapThreshold, err = durationEnv("REAP_THRESHOLD", 45*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.ReapInterval, err = durationEnv("REAP_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}

	if cfg.ReapThreshold <= 0 || cfg.ReapInterval <= 0 {
		return nil, fmt.Errorf("REAP_THRESHOLD and REAP_INTERVAL must be positive")
	}

	// --- Invite Settings ---
	cfg.InviteTTL, err = durationEnv("INVITE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg.InviteInboxLimit, err = intEnv("INVITE_INBOX_LIMIT", 20)
	if err != nil {
		return nil, err
	}
	if cfg.InviteInboxLimit < 1 {
		return nil, fmt.Errorf("INVITE_INBOX_LIMIT must be at least 1, got %d", cfg.InviteInboxLimit)
	}

	return cfg, nil
}

// intEnv reads an integer environment variable, falling back to def when unset.
func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return value, nil
}

// durationEnv reads a duration environment variable (Go syntax, e.g. "45s"),
// falling back to def when unset.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return value, nil
}
