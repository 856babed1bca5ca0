package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds overrides read from the environment.
type Env struct {
	ConfigPath string `env:"SCHULTE_CONFIG"`
	DBPath     string `env:"SCHULTE_DB"`
	LogLevel   string `env:"SCHULTE_LOG_LEVEL"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv reads Env and fills unset paths with the XDG defaults.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	if e.ConfigPath == "" {
		e.ConfigPath = DefaultConfigPath()
	}
	if e.DBPath == "" {
		e.DBPath = DefaultDBPath()
	}
	return e, nil
}

// ResolveLogLevel picks the environment level, then the file level, then "warn".
func ResolveLogLevel(e Env, cfg FileConfig) string {
	if e.LogLevel != "" {
		return e.LogLevel
	}
	if lvl := cfg.LogLevel(); lvl != "" {
		return lvl
	}
	return "warn"
}
