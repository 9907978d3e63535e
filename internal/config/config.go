package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	QdrantURL        string
	QdrantCollection string
	// VectorSize fixes the collection width; 0 probes the embedder instead.
	VectorSize int
	// VectorExpiration ages out table vectors; 0 disables age-based staleness.
	VectorExpiration time.Duration

	// SchemaDriver selects the schema provider: "sqlite" or "postgres".
	SchemaDriver string
	// SchemaDSN is the database path (sqlite) or connection string (postgres).
	SchemaDSN string
	// ConnectionID partitions the vector index per database connection.
	ConnectionID string

	CacheTTL time.Duration

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory, it is loaded automatically;
// environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "table_schemas"),
		SchemaDriver:       strings.ToLower(getEnv("SCHEMA_DRIVER", "sqlite")),
		SchemaDSN:          getEnv("SCHEMA_DSN", ""),
		ConnectionID:       getEnv("CONNECTION_ID", "default"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// VECTOR_SIZE is optional: when unset the store embeds a probe string on
	// first use and creates the collection with the detected width.
	if sizeStr := getEnv("VECTOR_SIZE", ""); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("VECTOR_SIZE must be a valid integer: %w", err)
		}
		if size < 0 {
			return nil, fmt.Errorf("VECTOR_SIZE must not be negative")
		}
		cfg.VectorSize = size
	}

	var err error
	if cfg.VectorExpiration, err = parseDuration("VECTOR_EXPIRATION", 0); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn", "warning":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	if cfg.SchemaDriver != "sqlite" && cfg.SchemaDriver != "postgres" {
		return nil, fmt.Errorf("SCHEMA_DRIVER must be sqlite or postgres, got %q", cfg.SchemaDriver)
	}
	if cfg.SchemaDSN == "" {
		return nil, fmt.Errorf("SCHEMA_DSN is required")
	}
	if cfg.ConnectionID == "" {
		return nil, fmt.Errorf("CONNECTION_ID must not be empty")
	}

	return cfg, nil
}

// parseDuration reads an optional duration env var like "5m" or "24h".
func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
