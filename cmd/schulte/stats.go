package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/schulte/internal/model"
	"github.com/verte-zerg/schulte/internal/stats"
	"github.com/verte-zerg/schulte/internal/statsui"
	"github.com/verte-zerg/schulte/internal/store"
)

const (
	defaultTrendWindow = 5
	defaultReportWidth = 80
)

var (
	statsSize   int
	statsOrder  string
	statsSince  string
	statsLast   int
	statsWindow int

	exportFormat string
	exportOut    string
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsSize, "size", 0, "grid size filter")
	cmd.Flags().StringVar(&statsOrder, "order", "", "order filter: asc or desc")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsWindow, "window", defaultTrendWindow, "moving average window for the trend")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	filter, err := buildFilter(statsSize, statsOrder, statsSince, statsLast)
	if err != nil {
		return err
	}
	if statsWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}
	rt, err := loadRuntime()
	if err != nil {
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

	if !isTerminal(os.Stdout) {
		report, err := stats.BuildReport(context.Background(), st, filter)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		for _, r := range report.Repairs {
			rt.logger.Warn("repaired stats", "repair", r)
		}
		return report.Render(cmd.OutOrStdout(), statsWindow, reportWidth())
	}

	m := statsui.NewModel(st, statsui.Config{Filter: filter, Window: statsWindow})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func buildFilter(size int, order, since string, last int) (model.SessionFilter, error) {
	var filter model.SessionFilter
	if size != 0 {
		if err := model.ValidateSize(size); err != nil {
			return filter, fmt.Errorf("--size: %w", err)
		}
		filter.Size = size
	}
	if order != "" {
		o, err := model.ParseOrder(order)
		if err != nil {
			return filter, fmt.Errorf("--order: %w", err)
		}
		filter.Order = o
	}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if last < 0 {
		return filter, fmt.Errorf("--last must be >= 0")
	}
	filter.Last = last
	return filter, nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stats and session history",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(strings.TrimSpace(exportFormat))
	if format != "json" && format != "yaml" {
		return fmt.Errorf("--format must be json or yaml")
	}
	rt, err := loadRuntime()
	if err != nil {
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

	loaded, err := st.LoadStats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	clean, repairs := stats.Sanitize(loaded)
	for _, r := range repairs {
		rt.logger.Warn("repaired stats", "repair", r)
	}

	if exportOut == "" {
		return encodeStats(cmd.OutOrStdout(), format, clean)
	}
	return writeFileAtomic(exportOut, func(w io.Writer) error {
		return encodeStats(w, format, clean)
	})
}

func encodeStats(w io.Writer, format string, st model.Stats) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := write(tmpFile); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// reportWidth is the stdout width, or a default when stdout is not a terminal.
func reportWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultReportWidth
	}
	return width
}

func isTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}
