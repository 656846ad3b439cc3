package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "RUN_ADDRESS", "DATABASE_URI", "LOG_LEVEL", "API_KEY_HASH"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.RunAddress)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURI)
	assert.Empty(t, cfg.APIKeyHash)
	assert.False(t, cfg.IsProd())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("RUN_ADDRESS", "0.0.0.0:9000")
	t.Setenv("DATABASE_URI", "postgres://u:p@db/iot")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("API_KEY_HASH", "$2a$10$abc")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Env:         "prod",
		RunAddress:  "0.0.0.0:9000",
		DatabaseURI: "postgres://u:p@db/iot",
		LogLevel:    "warn",
		APIKeyHash:  "$2a$10$abc",
	}, cfg)
	assert.True(t, cfg.IsProd())
}

func TestLoad_UnknownEnv(t *testing.T) {
	t.Setenv("APP_ENV", "staging")

	_, err := Load(viper.New())
	assert.Error(t, err)
}
