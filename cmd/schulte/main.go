// Package main provides the CLI entrypoint for schulte.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/schulte/internal/config"
	"github.com/verte-zerg/schulte/internal/generator"
	"github.com/verte-zerg/schulte/internal/logging"
	"github.com/verte-zerg/schulte/internal/model"
	"github.com/verte-zerg/schulte/internal/stats"
	"github.com/verte-zerg/schulte/internal/store"
	"github.com/verte-zerg/schulte/internal/tui"
)

var (
	trainSize        int
	trainTime        int
	trainOrder       string
	trainHints       bool
	trainFixationDot bool
	trainHaptic      bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := model.DefaultPreferences()
	rootCmd := &cobra.Command{
		Use:           "schulte",
		Short:         "Schulte table focus trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTrainCmd,
	}

	rootCmd.Flags().IntVar(&trainSize, "size", defaults.DefaultGridSize, "grid size (5-7)")
	rootCmd.Flags().IntVar(&trainTime, "time", defaults.DefaultMaxTime, "time limit in seconds (30-300)")
	rootCmd.Flags().StringVar(&trainOrder, "order", "asc", "tap order: asc or desc")
	rootCmd.Flags().BoolVar(&trainHints, "hints", defaults.ShowHints, "highlight the next number")
	rootCmd.Flags().BoolVar(&trainFixationDot, "fixation-dot", defaults.ShowFixationDot, "mark the grid centre")
	rootCmd.Flags().BoolVar(&trainHaptic, "haptic", defaults.HapticFeedback, "flash the grid on a mistake")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newPrefsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

// runtimeEnv bundles what every command resolves before doing work.
type runtimeEnv struct {
	env      config.Env
	fileCfg  config.FileConfig
	logLevel string
	logger   *slog.Logger
}

func loadRuntime() (runtimeEnv, error) {
	e, err := config.LoadEnv()
	if err != nil {
		return runtimeEnv{}, err
	}
	fileCfg, err := config.LoadConfig(e.ConfigPath)
	if err != nil {
		return runtimeEnv{}, fmt.Errorf("failed to load config: %w", err)
	}
	level := config.ResolveLogLevel(e, fileCfg)
	return runtimeEnv{
		env:      e,
		fileCfg:  fileCfg,
		logLevel: level,
		logger:   logging.NewLogger(level, os.Stderr),
	}, nil
}

func runTrainCmd(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	prefs := rt.fileCfg.ResolvePreferences()
	applyIntConfig(cmd, "size", &trainSize, prefs.DefaultGridSize)
	applyIntConfig(cmd, "time", &trainTime, prefs.DefaultMaxTime)
	applyBoolConfig(cmd, "hints", &trainHints, prefs.ShowHints)
	applyBoolConfig(cmd, "fixation-dot", &trainFixationDot, prefs.ShowFixationDot)
	applyBoolConfig(cmd, "haptic", &trainHaptic, prefs.HapticFeedback)

	order, err := model.ParseOrder(trainOrder)
	if err != nil {
		return fmt.Errorf("--order: %w", err)
	}
	cfg := model.GridConfig{Size: trainSize, MaxTimeSeconds: trainTime, Order: order}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(rt.env.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			rt.logger.Warn("failed to close db", "err", cerr)
		}
	}()

	initial, loaded := loadStats(context.Background(), st, rt.logger)
	var persist stats.Persister = st
	if !loaded {
		rt.logger.Warn("sessions from this run will not be saved")
		persist = nil
	}
	tracker := stats.NewTracker(initial, persist)

	// The alt screen owns the terminal until Run returns.
	var pending logging.Buffer
	defer func() {
		if err := pending.FlushTo(os.Stderr); err != nil {
			rt.logger.Warn("failed to flush log", "err", err)
		}
	}()
	m, err := tui.NewModel(generator.New(), tracker, tui.Options{
		Config: cfg,
		Prefs: model.Preferences{
			DefaultGridSize: cfg.Size,
			DefaultMaxTime:  cfg.MaxTimeSeconds,
			HapticFeedback:  trainHaptic,
			ShowHints:       trainHints,
			ShowFixationDot: trainFixationDot,
		},
		Logger: logging.NewLogger(rt.logLevel, &pending),
	})
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// loadStats reads persisted stats, repairing malformed data. When the store
// cannot be read at all it returns empty stats and false; the caller must not
// persist on top of them or the stored counters would be overwritten.
func loadStats(ctx context.Context, src stats.SessionSource, logger *slog.Logger) (model.Stats, bool) {
	loaded, err := src.LoadStats(ctx)
	if err != nil {
		logger.Warn("failed to load stats, starting fresh", "err", err)
		return model.NewStats(), false
	}
	clean, repairs := stats.Sanitize(loaded)
	for _, r := range repairs {
		logger.Warn("repaired stats", "repair", r)
	}
	return clean, true
}

// applyIntConfig copies a config value into target unless the flag was set.
func applyIntConfig(cmd *cobra.Command, name string, target *int, value int) {
	if !cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyBoolConfig(cmd *cobra.Command, name string, target *bool, value bool) {
	if !cmd.Flags().Changed(name) {
		*target = value
	}
}
