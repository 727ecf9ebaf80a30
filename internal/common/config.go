package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Service  ServiceConfig
	Database DatabaseConfig
	Handoff  HandoffConfig
	Ingest   IngestConfig
	Export   ExportConfig
	Org      OrgConfig
}

// ServiceConfig holds the remote extraction-service endpoint configuration
type ServiceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DatabaseConfig holds database-related configuration. DSN may be empty, in
// which case extraction jobs and the template cache are not persisted.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// HandoffConfig holds the session handoff store configuration. An empty Path
// selects the in-memory store.
type HandoffConfig struct {
	Path string
	TTL  time.Duration
}

// IngestConfig holds inbox watcher configuration
type IngestConfig struct {
	Roots    []string
	Debounce time.Duration
}

// ExportConfig holds local export configuration
type ExportConfig struct {
	Dir string
}

// OrgConfig is the opaque organization context threaded through remote calls
type OrgConfig struct {
	Name string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL: getEnv("EXTRACTION_SERVICE_URL", "http://localhost:8090"),
			APIKey:  getEnv("EXTRACTION_SERVICE_API_KEY", ""),
			Timeout: getEnvAsDuration("EXTRACTION_SERVICE_TIMEOUT", 90*time.Second),
		},
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Handoff: HandoffConfig{
			Path: getEnv("HANDOFF_DB_PATH", ""),
			TTL:  getEnvAsDuration("HANDOFF_TTL", 24*time.Hour),
		},
		Ingest: IngestConfig{
			Roots:    getEnvAsList("INGEST_ROOTS", nil),
			Debounce: getEnvAsDuration("INGEST_DEBOUNCE", 500*time.Millisecond),
		},
		Export: ExportConfig{
			Dir: getEnv("EXPORT_DIR", "./exports"),
		},
		Org: OrgConfig{
			Name: getEnv("ORG_NAME", ""),
		},
	}
}

// Validate checks the parts of the configuration required for remote calls.
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "EXTRACTION_SERVICE_URL is required", ErrInvalidInput)
	}
	if c.Org.Name == "" {
		return NewAppError("CONFIG_ERROR", "ORG_NAME is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
