package config

// loader.go - configuration loading from the environment.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. .env file  (never overrides variables that are already set)
//   4. Defaults   (defaults.go)

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	cerrors "tcpchat/internal/errors"
)

// LoadDotEnv merges the named files (default: ./.env) into the process
// environment.  A missing default file is not an error; a missing file
// that was asked for explicitly is.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(DefaultDotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", DefaultDotEnv, err)
		}
		return nil
	}
	return godotenv.Load(paths...)
}

// LoadFromEnv overlays TCPCHAT_* variables onto cfg.  Unset variables
// leave the existing value alone, so this should be called on a
// populated config BEFORE CLI flag parsing.
func LoadFromEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		var pe *envconfig.ParseError
		if errors.As(err, &pe) {
			return &cerrors.ConfigError{
				Field:   pe.FieldName,
				Value:   pe.Value,
				Message: "cannot parse " + pe.KeyName + " as " + pe.TypeName,
				Hint:    "check the value exported in the environment or .env file",
			}
		}
		return err
	}
	return nil
}

// Load is Default + LoadDotEnv + LoadFromEnv.
func Load(paths ...string) (*Config, error) {
	if err := LoadDotEnv(paths...); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
