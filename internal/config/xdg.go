// Package config resolves schulte's file locations and settings.
package config

import (
	"os"
	"path/filepath"
)

const appName = "schulte"

// baseDir returns $envVar when it holds an absolute path, otherwise the
// fallback under the home directory. Relative values are ignored as the XDG
// base directory rules require.
func baseDir(envVar string, fallback ...string) string {
	if v := os.Getenv(envVar); v != "" && filepath.IsAbs(v) {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// XDGConfigHome is $XDG_CONFIG_HOME or ~/.config.
func XDGConfigHome() string {
	return baseDir("XDG_CONFIG_HOME", ".config")
}

// XDGDataHome is $XDG_DATA_HOME or ~/.local/share.
func XDGDataHome() string {
	return baseDir("XDG_DATA_HOME", ".local", "share")
}

// DefaultDBPath is where session history lives unless SCHULTE_DB says otherwise.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, appName+".db")
}

// DefaultConfigPath is the TOML file read on startup unless SCHULTE_CONFIG says otherwise.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
