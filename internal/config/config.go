package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port          int
	LogLevel      string
	MaxUploadSize int64

	// Engine
	MaxConcurrency   int
	FailOnUnreadable bool
	OutputDir        string

	// Workbook loading
	OpenRetries   int
	OpenBackoff   time.Duration
	SheetCacheTTL time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:          getEnvInt("PORT", 8080),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE_BYTES", 32<<20)),

		MaxConcurrency:   getEnvInt("MAX_CONCURRENCY", 4),
		FailOnUnreadable: getEnvBool("FAIL_ON_UNREADABLE", false),
		OutputDir:        getEnv("OUTPUT_DIR", "out"),

		OpenRetries:   getEnvInt("OPEN_RETRIES", 2),
		OpenBackoff:   getEnvDuration("OPEN_BACKOFF", 50*time.Millisecond),
		SheetCacheTTL: getEnvDuration("SHEET_CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
