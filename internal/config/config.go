// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by STORE_BACKEND. The two implementations are
// interchangeable behind the same repository contract and are never mixed.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 9000).
	Port int

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Store holds persistence backend settings.
	Store StoreConfig

	// Redis holds Redis connection settings (used when Store.Backend is "redis").
	Redis RedisConfig
}

// StoreConfig selects and parameterizes the persistence backend.
type StoreConfig struct {
	// Backend is "file" (single JSON document on disk) or "redis"
	// (remote document store, one document per user).
	Backend string

	// DataFile is the path of the JSON document for the file backend.
	DataFile string

	// Digest selects the password digest algorithm: "sha256" or "blake2b".
	Digest string
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string

	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is loaded first if present,
// so local development works without exporting anything. Returns an error
// if a value is malformed or an unknown backend/digest is selected.
func Load() (*Config, error) {
	// Missing .env is the normal case in production; ignore the error.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 9000),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Store: StoreConfig{
			Backend:  strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
			DataFile: getEnv("DATA_FILE", "quiz_data.json"),
			Digest:   strings.ToLower(getEnv("PASSWORD_DIGEST", "sha256")),
		},

		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", "redis://localhost:6379"),
			DialTimeout: getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		},
	}

	switch cfg.Store.Backend {
	case BackendFile, BackendRedis:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want %q or %q)",
			cfg.Store.Backend, BackendFile, BackendRedis)
	}

	switch cfg.Store.Digest {
	case "sha256", "blake2b":
	default:
		return nil, fmt.Errorf("unknown PASSWORD_DIGEST %q (want \"sha256\" or \"blake2b\")",
			cfg.Store.Digest)
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "5s") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
