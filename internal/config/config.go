// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Auth
	JWTSecret      string
	JWTExpiryHours int

	// Monitoring pipeline
	RulesDir        string  // Directory of YAML detection rules
	AlertThreshold  float64 // Final risk score at or above which an alert is raised
	PipelineWorkers int
	PipelineQueue   int

	// Security
	RateLimitRPS   int
	AllowedOrigins string // Comma-separated CORS origins, empty means same-origin only

	// Demo
	SeedDemoData bool

	// Tracing
	OTLPEndpoint string
}

const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultJWTExpiry      = 24
	DefaultRulesDir       = "configs/rules"
	DefaultAlertThreshold = 6.0
	DefaultWorkers        = 4
	DefaultQueue          = 1024
	DefaultRateLimit      = 100
)

// devJWTSecret is only usable outside production.
const devJWTSecret = "dev-secret-change-me"

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:     os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		JWTSecret:       getEnv("JWT_SECRET", devJWTSecret),
		JWTExpiryHours:  int(getEnvInt64("JWT_EXPIRY_HOURS", DefaultJWTExpiry)),
		RulesDir:        getEnv("RULES_DIR", DefaultRulesDir),
		AlertThreshold:  getEnvFloat("ALERT_THRESHOLD", DefaultAlertThreshold),
		PipelineWorkers: int(getEnvInt64("PIPELINE_WORKERS", DefaultWorkers)),
		PipelineQueue:   int(getEnvInt64("PIPELINE_QUEUE", DefaultQueue)),
		RateLimitRPS:    int(getEnvInt64("RATE_LIMIT_RPS", DefaultRateLimit)),
		AllowedOrigins:  os.Getenv("ALLOWED_ORIGINS"),
		SeedDemoData:    getEnvBool("SEED_DEMO_DATA", true),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set explicitly in production")
	}
	if c.JWTExpiryHours <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive")
	}
	if c.AlertThreshold < 0 || c.AlertThreshold > 10 {
		return fmt.Errorf("ALERT_THRESHOLD must be within [0, 10]")
	}
	if c.PipelineWorkers <= 0 {
		return fmt.Errorf("PIPELINE_WORKERS must be positive")
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("PORT must be a valid port number")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
