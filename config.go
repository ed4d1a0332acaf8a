// Package storefront is the client-side core of the sneaker storefront:
// cart reconciliation between a local guest cart and the server cart of
// an authenticated customer, payment-attempt throttling, and checkout
// orchestration. It has no process entry point of its own; UI event
// handlers construct and drive it.
package storefront

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the storefront core's configuration.
type Config struct {
	Env      string
	LogLevel string

	// APIBaseURL is the root of the remote storefront services (cart
	// gateway, order service, auth service).
	APIBaseURL string

	// DataDir is where locally-persisted state lives: the guest cart,
	// the payment guard record, session credentials, and the device ID.
	DataDir string

	Guard GuardConfig
}

// GuardConfig tunes the payment attempt guard.
type GuardConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// NewConfig loads configuration from a .env file (when present) and the
// environment, with defaults suitable for development.
func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	if err := godotenv.Load(); err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:        getEnv("ENV", "dev"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080/api"),
		DataDir:    getEnv("DATA_DIR", defaultDataDir()),
		Guard: GuardConfig{
			MaxAttempts: getEnvInt("PAYMENT_MAX_ATTEMPTS", 5),
			Cooldown:    time.Duration(getEnvInt("PAYMENT_COOLDOWN_SECONDS", 120)) * time.Second,
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Guard.MaxAttempts < 1 {
		return nil, fmt.Errorf("PAYMENT_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.Guard.Cooldown <= 0 {
		return nil, fmt.Errorf("PAYMENT_COOLDOWN_SECONDS must be positive")
	}

	return cfg, nil
}

// defaultDataDir places local state under the user config directory,
// falling back to a relative directory when none is resolvable.
func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "./.storefront"
	}
	return filepath.Join(base, "storefront")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}
