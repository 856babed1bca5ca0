package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/schulte/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Preferences PreferencesConfig `toml:"preferences"`
	Logging     LoggingConfig     `toml:"logging"`
}

// PreferencesConfig maps stored user defaults.
type PreferencesConfig struct {
	DefaultGridSize *int  `toml:"default-grid-size"`
	DefaultMaxTime  *int  `toml:"default-max-time"`
	HapticFeedback  *bool `toml:"haptic-feedback"`
	ShowHints       *bool `toml:"show-hints"`
	ShowFixationDot *bool `toml:"show-fixation-dot"`
}

// LoggingConfig maps logging settings.
type LoggingConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// ResolvePreferences resolves the stored preferences over the built-in defaults.
// Out-of-range values fall back to the default.
func (c FileConfig) ResolvePreferences() model.Preferences {
	prefs := model.DefaultPreferences()
	p := c.Preferences
	if p.DefaultGridSize != nil && model.ValidateSize(*p.DefaultGridSize) == nil {
		prefs.DefaultGridSize = *p.DefaultGridSize
	}
	if p.DefaultMaxTime != nil && *p.DefaultMaxTime >= model.MinMaxTime && *p.DefaultMaxTime <= model.MaxMaxTime {
		prefs.DefaultMaxTime = *p.DefaultMaxTime
	}
	if p.HapticFeedback != nil {
		prefs.HapticFeedback = *p.HapticFeedback
	}
	if p.ShowHints != nil {
		prefs.ShowHints = *p.ShowHints
	}
	if p.ShowFixationDot != nil {
		prefs.ShowFixationDot = *p.ShowFixationDot
	}
	return prefs
}

// LogLevel returns the configured level or an empty string.
func (c FileConfig) LogLevel() string {
	if c.Logging.Level == nil {
		return ""
	}
	return *c.Logging.Level
}

// SetPreferences replaces the preferences table with prefs.
func (c *FileConfig) SetPreferences(prefs model.Preferences) {
	c.Preferences = PreferencesConfig{
		DefaultGridSize: &prefs.DefaultGridSize,
		DefaultMaxTime:  &prefs.DefaultMaxTime,
		HapticFeedback:  &prefs.HapticFeedback,
		ShowHints:       &prefs.ShowHints,
		ShowFixationDot: &prefs.ShowFixationDot,
	}
}

// SavePreferences stores prefs in the config file at path, keeping the other
// sections. The file is written to a temp file and renamed into place.
func SavePreferences(path string, prefs model.Preferences) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	cfg.SetPreferences(prefs)
	return WriteConfig(path, cfg)
}

// WriteConfig encodes cfg to path.
func WriteConfig(path string, cfg FileConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}
	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
