// Package config provides configuration loading from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// StorageBackend represents the run store implementation type.
type StorageBackend string

const (
	// StorageMemory keeps run records in memory (for development/testing).
	StorageMemory StorageBackend = "memory"
	// StoragePostgres persists run records in PostgreSQL.
	StoragePostgres StorageBackend = "postgres"
)

// JudgeBackend selects the model backend used to score samples.
type JudgeBackend string

const (
	JudgeBedrock JudgeBackend = "bedrock"
	JudgeOllama  JudgeBackend = "ollama"
)

// Base contains configuration shared by every entry point.
type Base struct {
	// Service identification
	ServiceName string
	Environment string // development, staging, production
	Version     string

	// Judge backend
	JudgeBackend    JudgeBackend
	JudgeModel      string
	JudgeEmbedModel string

	// Bedrock (used when JudgeBackend is "bedrock")
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string

	// Ollama (used when JudgeBackend is "ollama")
	OllamaURL string

	// Judge rate limiting (calls per window; 0 disables)
	JudgeRateLimit  int
	JudgeRateWindow time.Duration

	// Run store backend
	StorageBackend StorageBackend

	// Database (used when StorageBackend is "postgres")
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (used for judge rate limiting)
	RedisURL string

	// S3 artifact access
	S3Endpoint string

	// Observability
	OTLPEndpoint string
	LogLevel     string
	LogFormat    string // json, text

	// Tracing
	TracingEnabled  bool
	TracingSampling float64
}

// Load loads base configuration from environment variables.
func Load(serviceName string) (*Base, error) {
	cfg := &Base{
		ServiceName: serviceName,
		Environment: getEnv("NAXOS_ENV", "development"),
		Version:     getEnv("NAXOS_VERSION", "dev"),

		JudgeBackend:    parseJudgeBackend(getEnv("NAXOS_JUDGE_BACKEND", "bedrock")),
		JudgeModel:      getEnv("NAXOS_JUDGE_MODEL", ""),
		JudgeEmbedModel: getEnv("NAXOS_JUDGE_EMBED_MODEL", ""),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSSessionToken:    getEnv("AWS_SESSION_TOKEN", ""),

		OllamaURL: getEnv("NAXOS_OLLAMA_URL", "http://localhost:11434"),

		JudgeRateLimit:  getEnvInt("NAXOS_JUDGE_RATE_LIMIT", 0),
		JudgeRateWindow: getEnvDuration("NAXOS_JUDGE_RATE_WINDOW", time.Minute),

		StorageBackend: parseStorageBackend(getEnv("NAXOS_STORAGE_BACKEND", "memory")),

		DBHost:     getEnv("NAXOS_DB_HOST", "localhost"),
		DBPort:     getEnvInt("NAXOS_DB_PORT", 5432),
		DBUser:     getEnv("NAXOS_DB_USER", "naxos"),
		DBPassword: getEnv("NAXOS_DB_PASSWORD", ""),
		DBName:     getEnv("NAXOS_DB_NAME", "naxos"),
		DBSSLMode:  getEnv("NAXOS_DB_SSLMODE", "disable"),

		RedisURL: getEnv("NAXOS_REDIS_URL", "redis://localhost:6379"),

		S3Endpoint: getEnv("NAXOS_S3_ENDPOINT", ""),

		OTLPEndpoint: getEnv("NAXOS_OTLP_ENDPOINT", "localhost:4317"),
		LogLevel:     getEnv("NAXOS_LOG_LEVEL", "info"),
		LogFormat:    getEnv("NAXOS_LOG_FORMAT", "json"),

		TracingEnabled:  getEnvBool("NAXOS_TRACING_ENABLED", false),
		TracingSampling: getEnvFloat("NAXOS_TRACING_SAMPLING", 1.0),
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Base) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// IsDevelopment returns true if running in development mode.
func (c *Base) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Base) IsProduction() bool {
	return c.Environment == "production"
}

// UseMemoryStorage returns true if using the in-memory run store.
func (c *Base) UseMemoryStorage() bool {
	return c.StorageBackend == StorageMemory
}

// UsePostgresStorage returns true if using the PostgreSQL run store.
func (c *Base) UsePostgresStorage() bool {
	return c.StorageBackend == StoragePostgres
}

// Helper functions

func parseStorageBackend(s string) StorageBackend {
	switch s {
	case "postgres", "postgresql", "pg":
		return StoragePostgres
	default:
		return StorageMemory
	}
}

func parseJudgeBackend(s string) JudgeBackend {
	switch s {
	case "ollama":
		return JudgeOllama
	default:
		return JudgeBedrock
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
