// Package tui provides the Bubble Tea training interface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/schulte/internal/logging"
	"github.com/verte-zerg/schulte/internal/model"
	"github.com/verte-zerg/schulte/internal/session"
	statsPkg "github.com/verte-zerg/schulte/internal/stats"
)

const (
	tickInterval  = 100 * time.Millisecond
	flashDuration = 150 * time.Millisecond
)

type tickMsg time.Time

// Options configures the training model.
type Options struct {
	Config model.GridConfig
	Prefs  model.Preferences
	Logger *slog.Logger
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Model implements the Bubble Tea training UI.
type Model struct {
	engine  *session.Engine
	tracker *statsPkg.Tracker
	config  model.GridConfig
	prefs   model.Preferences
	logger  *slog.Logger
	now     func() time.Time
	keys    keyMap
	help    help.Model

	width  int
	height int

	cursorRow int
	cursorCol int

	snap       session.Snapshot
	flashUntil time.Time
	result     *model.SessionResult
	stats      model.Stats
}

// NewModel constructs a training model and starts the first session.
func NewModel(gen session.GridSource, tracker *statsPkg.Tracker, opts Options) (*Model, error) {
	m := &Model{
		tracker: tracker,
		config:  opts.Config,
		prefs:   opts.Prefs,
		logger:  opts.Logger,
		now:     opts.Now,
		keys:    defaultKeyMap(),
		help:    help.New(),
		stats:   tracker.Current(),
	}
	if m.logger == nil {
		m.logger = logging.Discard()
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.engine = session.New(gen,
		session.WithClock(m.now),
		session.WithResultHandler(m.recordResult),
	)
	if err := m.start(); err != nil {
		return nil, err
	}
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		if m.engine.Tick(time.Time(msg)) {
			m.logger.Debug("session timed out", "id", m.snap.ID)
		}
		m.refresh(time.Time(msg))
		return m, tickCmd()
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.engine.Abandon() {
			m.logger.Debug("session abandoned on quit", "id", m.snap.ID)
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Restart):
		if err := m.start(); err != nil {
			m.logger.Warn("failed to restart session", "err", err)
		}
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(0, -1)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(0, 1)
	case key.Matches(msg, m.keys.Tap):
		m.tapCell(m.cursorRow, m.cursorCol)
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}
	if m.width == 0 || m.height == 0 || m.snap.State != session.StateRunning {
		return
	}
	row, col, ok := computeLayout(m.config.Size, m.width, m.height).cellAt(msg.X, msg.Y)
	if !ok {
		return
	}
	m.cursorRow = row
	m.cursorCol = col
	m.tapCell(row, col)
}

func (m *Model) moveCursor(dr, dc int) {
	size := m.config.Size
	m.cursorRow = (m.cursorRow + dr + size) % size
	m.cursorCol = (m.cursorCol + dc + size) % size
}

func (m *Model) tapCell(row, col int) {
	if m.engine.State() != session.StateRunning {
		return
	}
	now := m.now()
	// A tap past the limit loses to the timeout the next tick would apply.
	if now.Sub(m.snap.StartedAt) > time.Duration(m.config.MaxTimeSeconds)*time.Second {
		m.engine.Tick(now)
		m.refresh(now)
		return
	}
	value := m.snap.Grid.At(row, col)
	res, err := m.engine.Tap(value)
	if err != nil {
		m.logger.Warn("tap rejected", "value", value, "err", err)
		return
	}
	m.logger.Log(context.Background(), logging.LevelTrace, "tap", "value", value, "correct", res.Correct)
	if !res.Correct && m.prefs.HapticFeedback {
		m.flashUntil = now.Add(flashDuration)
	}
	m.refresh(now)
}

func (m *Model) start() error {
	snap, err := m.engine.Start(m.config)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	m.snap = snap
	m.result = nil
	m.flashUntil = time.Time{}
	m.cursorRow = m.config.Size / 2
	m.cursorCol = m.config.Size / 2
	m.logger.Debug("session started", "id", snap.ID, "key", m.config.Key())
	return nil
}

func (m *Model) refresh(now time.Time) {
	m.snap = m.engine.Snapshot(now)
}

// recordResult receives every finished session from the engine.
func (m *Model) recordResult(r model.SessionResult) {
	m.result = &r
	st, err := m.tracker.Record(context.Background(), r)
	if err != nil {
		m.logger.Warn("failed to save session", "id", r.ID, "err", err)
	}
	m.stats = st
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.snap.State.Terminal() && m.result != nil {
		return m.place(m.renderResult())
	}
	if m.snap.Grid.Size == 0 {
		return ""
	}
	layout := computeLayout(m.config.Size, m.width, m.height)
	marks := gridMarks{
		cursorRow: m.cursorRow,
		cursorCol: m.cursorCol,
		fixation:  m.prefs.ShowFixationDot,
	}
	if m.prefs.ShowHints {
		marks.hint = m.snap.NextTarget
	}
	box := boxStyle
	if m.now().Before(m.flashUntil) {
		box = flashBoxStyle
	}
	grid := box.Render(renderGrid(m.snap.Grid, marks))

	var b strings.Builder
	b.WriteString(strings.Repeat("\n", layout.top))
	b.WriteString(centerLine(m.renderHeader(), m.width))
	b.WriteString("\n\n")
	b.WriteString(indent(grid, layout.left))
	b.WriteString("\n\n")
	b.WriteString(centerLine(m.help.ShortHelpView(m.keys.ShortHelp()), m.width))
	return b.String()
}

func (m *Model) renderHeader() string {
	snap := m.snap
	segments := []string{
		fmt.Sprintf("Find %d", snap.NextTarget),
		fmt.Sprintf("%s left", statsPkg.FormatTimeShort(snap.RemainingSeconds)),
		fmt.Sprintf("%d/%d", snap.TargetIndex, snap.Config.Cells()),
	}
	if snap.Mistakes > 0 {
		segments = append(segments, fmt.Sprintf("%d mistakes", snap.Mistakes))
	}
	return headerStyle.Render(strings.Join(segments, "  ·  "))
}

func (m *Model) renderResult() string {
	r := m.result
	title := "Completed!"
	switch r.Outcome {
	case model.OutcomeTimedOut:
		title = "Time's up"
	case model.OutcomeAbandoned:
		title = "Abandoned"
	}
	lines := []string{
		titleStyle.Render(title),
		"",
		fmt.Sprintf("Grid      %dx%d %s", r.Config.Size, r.Config.Size, orderText(r.Config.Order)),
		fmt.Sprintf("Time      %s", statsPkg.FormatTimeShort(r.ElapsedSeconds)),
		fmt.Sprintf("Found     %d/%d", r.CorrectTaps, r.Config.Cells()),
		fmt.Sprintf("Mistakes  %d", r.MistakeCount),
	}
	if best, ok := m.stats.BestTime(r.Config.Key()); ok {
		line := fmt.Sprintf("Best      %s", statsPkg.FormatTimeShort(best))
		if r.Outcome == model.OutcomeCompleted && best == r.ElapsedSeconds {
			line += " (new)"
		}
		lines = append(lines, line)
	}
	lines = append(lines,
		fmt.Sprintf("Streak    %d", m.stats.CurrentStreak),
		"",
		headerStyle.Render("r: play again  ·  q: quit"),
	)
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) place(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func orderText(o model.Order) string {
	if o == model.OrderDesc {
		return "descending"
	}
	return "ascending"
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
