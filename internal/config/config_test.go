package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_WithValidConfig(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "JWT_SECRET", "unit-test-secret")
	setEnv(t, "ALERT_THRESHOLD", "7.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "unit-test-secret", cfg.JWTSecret)
	assert.Equal(t, 7.5, cfg.AlertThreshold)
	assert.Equal(t, DefaultJWTExpiry, cfg.JWTExpiryHours)
	assert.Equal(t, DefaultRulesDir, cfg.RulesDir)
}

func TestLoad_ProductionRequiresExplicitSecret(t *testing.T) {
	setEnv(t, "ENV", "production")
	setEnv(t, "JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Port:            "8080",
		JWTSecret:       "secret",
		JWTExpiryHours:  24,
		AlertThreshold:  6.0,
		PipelineWorkers: 4,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: ""},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.JWTSecret = "" },
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "dev secret in production",
			mutate:  func(c *Config) { c.Env = "production"; c.JWTSecret = devJWTSecret },
			wantErr: "production",
		},
		{
			name:    "zero expiry",
			mutate:  func(c *Config) { c.JWTExpiryHours = 0 },
			wantErr: "JWT_EXPIRY_HOURS",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.AlertThreshold = 12 },
			wantErr: "ALERT_THRESHOLD",
		},
		{
			name:    "no workers",
			mutate:  func(c *Config) { c.PipelineWorkers = 0 },
			wantErr: "PIPELINE_WORKERS",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Port = "not-a-port" },
			wantErr: "PORT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt64(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("NONEXISTENT_VAR", 99))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99)) // Falls back on parse error
}

func TestGetEnvFloat(t *testing.T) {
	setEnv(t, "TEST_FLOAT", "3.25")
	setEnv(t, "TEST_INVALID", "x")

	assert.Equal(t, 3.25, getEnvFloat("TEST_FLOAT", 0))
	assert.Equal(t, 1.5, getEnvFloat("NONEXISTENT_VAR", 1.5))
	assert.Equal(t, 1.5, getEnvFloat("TEST_INVALID", 1.5))
}

func TestGetEnvBool(t *testing.T) {
	setEnv(t, "TEST_BOOL", "false")

	assert.False(t, getEnvBool("TEST_BOOL", true))
	assert.True(t, getEnvBool("NONEXISTENT_VAR", true))
}
