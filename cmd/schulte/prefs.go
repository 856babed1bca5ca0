package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/schulte/internal/config"
	"github.com/verte-zerg/schulte/internal/model"
)

var (
	prefsSize        int
	prefsTime        int
	prefsHaptic      bool
	prefsHints       bool
	prefsFixationDot bool
)

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change saved preferences",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show saved preferences",
		Args:  cobra.NoArgs,
		RunE:  runPrefsShowCmd,
	})

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Save preferences as defaults",
		Args:  cobra.NoArgs,
		RunE:  runPrefsSetCmd,
	}
	defaults := model.DefaultPreferences()
	setCmd.Flags().IntVar(&prefsSize, "size", defaults.DefaultGridSize, "default grid size (5-7)")
	setCmd.Flags().IntVar(&prefsTime, "time", defaults.DefaultMaxTime, "default time limit in seconds (30-300)")
	setCmd.Flags().BoolVar(&prefsHaptic, "haptic", defaults.HapticFeedback, "flash the grid on a mistake")
	setCmd.Flags().BoolVar(&prefsHints, "hints", defaults.ShowHints, "highlight the next number")
	setCmd.Flags().BoolVar(&prefsFixationDot, "fixation-dot", defaults.ShowFixationDot, "mark the grid centre")
	cmd.AddCommand(setCmd)
	return cmd
}

func runPrefsShowCmd(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	return writePreferences(cmd.OutOrStdout(), rt.fileCfg.ResolvePreferences())
}

func runPrefsSetCmd(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	prefs := rt.fileCfg.ResolvePreferences()
	setIntFlag(cmd, "size", &prefs.DefaultGridSize, prefsSize)
	setIntFlag(cmd, "time", &prefs.DefaultMaxTime, prefsTime)
	setBoolFlag(cmd, "haptic", &prefs.HapticFeedback, prefsHaptic)
	setBoolFlag(cmd, "hints", &prefs.ShowHints, prefsHints)
	setBoolFlag(cmd, "fixation-dot", &prefs.ShowFixationDot, prefsFixationDot)

	if err := validatePreferences(prefs); err != nil {
		return err
	}
	if err := config.SavePreferences(rt.env.ConfigPath, prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	rt.logger.Info("preferences saved", "path", rt.env.ConfigPath)
	return writePreferences(cmd.OutOrStdout(), prefs)
}

func validatePreferences(p model.Preferences) error {
	if err := model.ValidateSize(p.DefaultGridSize); err != nil {
		return fmt.Errorf("--size: %w", err)
	}
	if p.DefaultMaxTime < model.MinMaxTime || p.DefaultMaxTime > model.MaxMaxTime {
		return fmt.Errorf("--time must be between %d and %d", model.MinMaxTime, model.MaxMaxTime)
	}
	return nil
}

func writePreferences(w io.Writer, p model.Preferences) error {
	lines := []string{
		fmt.Sprintf("default-grid-size = %d", p.DefaultGridSize),
		fmt.Sprintf("default-max-time = %d", p.DefaultMaxTime),
		fmt.Sprintf("haptic-feedback = %t", p.HapticFeedback),
		fmt.Sprintf("show-hints = %t", p.ShowHints),
		fmt.Sprintf("show-fixation-dot = %t", p.ShowFixationDot),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func setIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func setBoolFlag(cmd *cobra.Command, name string, target *bool, value bool) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	e, err := config.LoadEnv()
	if err != nil {
		return err
	}
	path := e.ConfigPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	d := model.DefaultPreferences()
	return fmt.Sprintf(`# schulte configuration
# Uncomment a value to enable it. CLI flags override config values.

[preferences]
# default-grid-size = %d      # Grid size (%d-%d)
# default-max-time = %d     # Time limit in seconds (%d-%d)
# haptic-feedback = %t    # Flash the grid on a mistake
# show-hints = %t        # Highlight the next number
# show-fixation-dot = %t  # Mark the grid centre

[logging]
# level = "warn"              # trace, debug, info, warn or error
`,
		d.DefaultGridSize, model.MinGridSize, model.MaxGridSize,
		d.DefaultMaxTime, model.MinMaxTime, model.MaxMaxTime,
		d.HapticFeedback,
		d.ShowHints,
		d.ShowFixationDot,
	)
}
