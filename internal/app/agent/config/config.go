// Package config loads the sync agent settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"iotsync/internal/config"
)

const (
	FlatHTTP     = "http"
	FlatPostgres = "postgres"
	FlatMemory   = "memory"

	DocMongo  = "mongo"
	DocMemory = "memory"
)

const (
	defaultLogLevel      = "info"
	defaultDataDir       = ".iotsync"
	defaultDataFile      = "local.db"
	defaultServerAddress = "localhost:8080"
	defaultMongoDatabase = "iotsync"
	defaultSyncInterval  = 30
	defaultBatchSize     = 25
)

var envFiles = []string{".env", "../.env"}

type Config struct {
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	DataPath string `mapstructure:"data_path"`
	// TablesFile replaces the compiled-in table mapping when set.
	TablesFile string `mapstructure:"tables_file"`
	Sync       Sync
	Flat       Flat
	Doc        Doc
}

type Sync struct {
	Interval     time.Duration
	BatchSize    int
	AllowOverlap bool
}

type Flat struct {
	Driver        string
	ServerAddress string
	APIKey        string
	DatabaseURI   string
}

type Doc struct {
	Driver   string
	URI      string
	Database string
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
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("SYNC_INTERVAL_SECONDS", defaultSyncInterval)
	v.SetDefault("SYNC_BATCH_SIZE", defaultBatchSize)
	v.SetDefault("SYNC_ALLOW_OVERLAP", false)
	v.SetDefault("FLAT_DRIVER", FlatHTTP)
	v.SetDefault("FLAT_SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("MONGO_DATABASE", defaultMongoDatabase)

	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataPath = filepath.Join(home, defaultDataDir, defaultDataFile)
	}

	cfg := &Config{
		Env:        v.GetString("APP_ENV"),
		LogLevel:   v.GetString("LOG_LEVEL"),
		LogFile:    v.GetString("LOG_FILE"),
		DataPath:   dataPath,
		TablesFile: v.GetString("TABLES_FILE"),
		Sync: Sync{
			Interval:     time.Duration(v.GetInt("SYNC_INTERVAL_SECONDS")) * time.Second,
			BatchSize:    v.GetInt("SYNC_BATCH_SIZE"),
			AllowOverlap: v.GetBool("SYNC_ALLOW_OVERLAP"),
		},
		Flat: Flat{
			Driver:        v.GetString("FLAT_DRIVER"),
			ServerAddress: v.GetString("FLAT_SERVER_ADDRESS"),
			APIKey:        v.GetString("FLAT_API_KEY"),
			DatabaseURI:   v.GetString("FLAT_DATABASE_URI"),
		},
		Doc: Doc{
			Driver:   v.GetString("DOC_DRIVER"),
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.Env {
	case config.EnvLocal, config.EnvDev, config.EnvProd:
	default:
		errs = append(errs, fmt.Errorf("unknown app_env %q", c.Env))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("sync_interval_seconds must be positive"))
	}
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, errors.New("sync_batch_size must be positive"))
	}

	switch c.Flat.Driver {
	case FlatHTTP:
		if c.Flat.ServerAddress == "" {
			errs = append(errs, errors.New("flat_server_address must not be empty"))
		}
	case FlatPostgres:
		if c.Flat.DatabaseURI == "" {
			errs = append(errs, errors.New("flat_database_uri must not be empty"))
		}
	case FlatMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown flat_driver %q", c.Flat.Driver))
	}

	switch c.Doc.Driver {
	case "":
		errs = append(errs, errors.New("doc_driver must be set to mongo or memory"))
	case DocMongo:
		if c.Doc.URI == "" {
			errs = append(errs, errors.New("mongo_uri must not be empty"))
		}
		if c.Doc.Database == "" {
			errs = append(errs, errors.New("mongo_database must not be empty"))
		}
	case DocMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown doc_driver %q", c.Doc.Driver))
	}

	if c.Env != config.EnvLocal {
		if c.Flat.Driver == FlatMemory {
			errs = append(errs, fmt.Errorf("flat_driver memory is only allowed with app_env %s", config.EnvLocal))
		}
		if c.Doc.Driver == DocMemory {
			errs = append(errs, fmt.Errorf("doc_driver memory is only allowed with app_env %s", config.EnvLocal))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) IsProd() bool {
	return c.Env == config.EnvProd
}
