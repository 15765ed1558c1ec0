package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces environment variables, e.g. GEOCRYPT_REDIS_ADDR.
const EnvPrefix = "GEOCRYPT"

// envFile is loaded into the process environment when present. Variables
// already set in the environment win.
var envFile = ".env"

// parseEnv loads envFile (if it exists) and overlays GEOCRYPT_* variables
// onto config. Unset variables leave fields unchanged. Malformed values panic.
func parseEnv(config *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		panic(err)
	}
}
