package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/schulte/internal/model"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.ResolvePreferences(); got != model.DefaultPreferences() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[preferences]
default-grid-size = 7
default-max-time = 45
haptic-feedback = false
show-hints = true

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	prefs := cfg.ResolvePreferences()
	want := model.Preferences{
		DefaultGridSize: 7,
		DefaultMaxTime:  45,
		HapticFeedback:  false,
		ShowHints:       true,
		ShowFixationDot: true,
	}
	if prefs != want {
		t.Fatalf("unexpected preferences: %+v", prefs)
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel())
	}
}

func TestResolvePreferencesRejectsOutOfRange(t *testing.T) {
	size := 9
	maxTime := 5
	cfg := FileConfig{Preferences: PreferencesConfig{DefaultGridSize: &size, DefaultMaxTime: &maxTime}}
	prefs := cfg.ResolvePreferences()
	if prefs.DefaultGridSize != 5 || prefs.DefaultMaxTime != 120 {
		t.Fatalf("expected defaults for out-of-range values, got %+v", prefs)
	}
}

func TestSavePreferencesKeepsLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schulte", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"trace\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	prefs := model.Preferences{DefaultGridSize: 6, DefaultMaxTime: 90, HapticFeedback: true, ShowHints: true}
	if err := SavePreferences(path, prefs); err != nil {
		t.Fatalf("save preferences: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.ResolvePreferences(); got != prefs {
		t.Fatalf("expected %+v, got %+v", prefs, got)
	}
	if cfg.LogLevel() != "trace" {
		t.Fatalf("logging section lost: %q", cfg.LogLevel())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "config-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("SCHULTE_CONFIG", "")
	t.Setenv("SCHULTE_DB", "/tmp/custom.db")
	t.Setenv("SCHULTE_LOG_LEVEL", "error")

	e, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if e.ConfigPath != filepath.Join("/cfg", "schulte", "config.toml") {
		t.Fatalf("unexpected config path %q", e.ConfigPath)
	}
	if e.DBPath != "/tmp/custom.db" {
		t.Fatalf("unexpected db path %q", e.DBPath)
	}
	level := "debug"
	if got := ResolveLogLevel(e, FileConfig{Logging: LoggingConfig{Level: &level}}); got != "error" {
		t.Fatalf("env level should win, got %q", got)
	}
	if got := ResolveLogLevel(Env{}, FileConfig{}); got != "warn" {
		t.Fatalf("expected default warn, got %q", got)
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultDBPath(); got != filepath.Join("/data", "schulte", "schulte.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}

func TestRelativeXDGIgnored(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "relative/cfg")
	if got := DefaultConfigPath(); got != filepath.Join(home, ".config", "schulte", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
}
