// Package config holds settings shared by the agent and the server.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// LoadDotEnv loads the first existing file among paths into the process
// environment and returns its path. Missing files are not an error.
func LoadDotEnv(paths ...string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return p, err
		}
		return p, nil
	}
	return "", nil
}
