// Package config holds the settings used to open a store from the CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/illarion/filevault/internal/crypto"
)

// Environment variables read by FromEnv.
const (
	EnvRoot        = "FILEVAULT_ROOT"
	EnvLockTimeout = "FILEVAULT_LOCK_TIMEOUT"
	EnvKDF         = "FILEVAULT_KDF"
	EnvLogLevel    = "FILEVAULT_LOG_LEVEL"
)

// Config controls how a store is opened.
type Config struct {
	Root        string        // store directory
	LockTimeout time.Duration // wait for a busy name before ErrBusy
	KDF         string        // "pbkdf2" or "scrypt"
	LogLevel    string        // zerolog level name
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Root:        "./files",
		LockTimeout: 5 * time.Second,
		KDF:         "pbkdf2",
		LogLevel:    "warn",
	}
}

// FromEnv overlays any FILEVAULT_* variables that are set onto cfg.
func FromEnv(cfg Config) (Config, error) {
	if v := os.Getenv(EnvRoot); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv(EnvLockTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q", ErrInvalidLockTimeout, EnvLockTimeout, v)
		}
		cfg.LockTimeout = d
	}
	if v := os.Getenv(EnvKDF); v != "" {
		cfg.KDF = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

// KDFParams returns the key derivation selected by cfg.KDF.
func (c Config) KDFParams() (crypto.KDFParams, error) {
	params, err := crypto.ParseKDF(c.KDF)
	if err != nil {
		return crypto.KDFParams{}, fmt.Errorf("%w: %w", ErrInvalidKDF, err)
	}
	return params, nil
}

// Level returns the zerolog level selected by cfg.LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.NoLevel, ErrInvalidLogLevel
	}
	return level, nil
}
