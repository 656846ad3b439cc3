// Package config loads the flat-store server settings.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"iotsync/internal/config"
)

const (
	defaultRunAddress = ":8080"
	defaultLogLevel   = "info"
)

var envFiles = []string{".env", "../.env", "../../.env"}

type Config struct {
	Env        string `mapstructure:"app_env"`
	RunAddress string `mapstructure:"run_address"`
	// DatabaseURI selects the Postgres node store; empty keeps nodes in memory.
	DatabaseURI string `mapstructure:"database_uri"`
	LogLevel    string `mapstructure:"log_level"`
	// APIKeyHash is a bcrypt hash of the agents' API key; empty disables auth.
	APIKeyHash string `mapstructure:"api_key_hash"`
}

// MustLoad reads the configuration and panics when it is invalid.
func MustLoad() *Config {
	if _, err := config.LoadDotEnv(envFiles...); err != nil {
		panic(fmt.Sprintf("load .env: %v", err))
	}

	cfg, err := Load(viper.New())
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Load reads the configuration from the environment through v.
func Load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", config.EnvLocal)
	v.SetDefault("RUN_ADDRESS", defaultRunAddress)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)

	cfg := &Config{
		Env:         v.GetString("APP_ENV"),
		RunAddress:  v.GetString("RUN_ADDRESS"),
		DatabaseURI: v.GetString("DATABASE_URI"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		APIKeyHash:  v.GetString("API_KEY_HASH"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RunAddress == "" {
		return errors.New("run_address must not be empty")
	}
	switch c.Env {
	case config.EnvLocal, config.EnvDev, config.EnvProd:
	default:
		return fmt.Errorf("unknown app_env %q", c.Env)
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.Env == config.EnvProd
}
