// Package statsui is the interactive browser behind `schulte stats`.
package statsui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/schulte/internal/model"
	"github.com/verte-zerg/schulte/internal/stats"
)

const (
	tabOverview = iota
	tabHistory
)

const (
	defaultTrendWindow = 5
	trendWindowStep    = 5
	fallbackWidth      = 80
)

var tabNames = []string{"Overview", "History"}

// Shared with the training screen: gold accent, grey chrome, red for errors.
var (
	accent = lipgloss.Color("#C89A3A")
	muted  = lipgloss.Color("#8C8C8C")

	tabStyle       = lipgloss.NewStyle().Foreground(muted).Padding(0, 2)
	activeTabStyle = tabStyle.Foreground(lipgloss.Color("#101010")).Background(accent).Bold(true)
	tabBarStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(lipgloss.Color("#3A3A3A"))
	headerStyle    = lipgloss.NewStyle().Foreground(muted)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle      = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#3A3A3A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(muted)
	cardValueStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
)

// Config selects the sessions shown and the trend smoothing window.
type Config struct {
	Filter model.SessionFilter
	Window int
}

// Model is the stats browser: an overview viewport and a history table,
// both rebuilt from a stats.Report whenever the filter changes.
type Model struct {
	src stats.SessionSource
	cfg Config

	report stats.Report
	errMsg string

	activeTab int
	overview  viewport.Model
	history   table.Model
	keys      keyMap
	help      help.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel loads the first report from src.
func NewModel(src stats.SessionSource, cfg Config) *Model {
	if cfg.Window < 1 {
		cfg.Window = defaultTrendWindow
	}
	m := &Model{
		src:      src,
		cfg:      cfg,
		overview: viewport.New(0, 0),
		history:  newHistoryTable(),
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
	m.initInputs()
	m.refreshReport()
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		m.renderOverview()
		return m, nil
	case tea.KeyMsg:
		if m.filterMode {
			if msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Prev):
		m.moveTab(-1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.Next):
		m.moveTab(1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.Wider):
		m.cfg.Window = nextTrendWindow(m.cfg.Window)
		m.renderOverview()
		return m, nil
	case key.Matches(msg, m.keys.Narrow):
		m.cfg.Window = prevTrendWindow(m.cfg.Window)
		m.renderOverview()
		return m, nil
	case key.Matches(msg, m.keys.Filter):
		return m.startFilter()
	case key.Matches(msg, m.keys.Top):
		if m.activeTab == tabHistory {
			m.history.GotoTop()
		} else {
			m.overview.GotoTop()
		}
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		if m.activeTab == tabHistory {
			m.history.GotoBottom()
		} else {
			m.overview.GotoBottom()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.activeTab == tabHistory {
		m.history, cmd = m.history.Update(msg)
	} else {
		m.overview, cmd = m.overview.Update(msg)
	}
	return m, cmd
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	top, middle, bottom := m.regions()
	return lipgloss.JoinVertical(lipgloss.Left,
		fitBlock(m.renderHeader(), m.width, top),
		fitBlock(m.renderBody(), m.width, middle),
		fitBlock(m.renderFooter(), m.width, bottom),
	)
}

// regions splits the terminal height into header, body and footer.
func (m *Model) regions() (top, middle, bottom int) {
	top = lipgloss.Height(m.renderTabs()) + 1
	bottom = 1
	if !m.filterMode && m.errMsg != "" {
		bottom = 2
	}
	middle = max(1, m.height-top-bottom)
	return top, middle, bottom
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, middle, _ := m.regions()
	m.overview.Width, m.overview.Height = m.width, middle
	m.history.SetWidth(m.width)
	// The table header and its rule use two lines.
	m.history.SetHeight(max(1, middle-2))
	for i := range m.filterInputs {
		m.filterInputs[i].Width = max(10, m.width-lipgloss.Width(m.filterInputs[i].Prompt)-2)
	}
}

func (m *Model) moveTab(delta int) {
	m.activeTab = (m.activeTab + delta + len(tabNames)) % len(tabNames)
	if m.activeTab == tabHistory {
		m.history.Focus()
		return
	}
	m.history.Blur()
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.src, m.cfg.Filter)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{}
		m.overview.SetContent("Failed to load stats.")
		m.history.SetRows(nil)
		return
	}
	m.errMsg = ""
	m.report = report
	m.history.SetRows(historyRows(report.Sessions))
	if len(report.Sessions) > 0 {
		m.history.GotoBottom()
	}
	m.renderOverview()
}

func (m *Model) renderOverview() {
	if m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = fallbackWidth
	}
	m.overview.SetContent(renderOverview(m.report, m.cfg.Window, width))
}

func (m *Model) renderTabs() string {
	rendered := make([]string, len(tabNames))
	for i, name := range tabNames {
		style := tabStyle
		if i == m.activeTab {
			style = activeTabStyle
		}
		rendered[i] = style.Render(name)
	}
	return tabBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Bottom, rendered...))
}

func (m *Model) renderHeader() string {
	return m.renderTabs() + "\n" + m.renderFilterSummary()
}

func (m *Model) renderBody() string {
	switch {
	case m.filterMode:
		return m.renderFilterForm()
	case m.activeTab == tabOverview:
		return m.overview.View()
	case len(m.report.Sessions) == 0:
		return headerStyle.Render("No sessions match the filter.")
	default:
		return m.history.View()
	}
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	footer := m.help.View(m.keys)
	if m.errMsg != "" {
		footer += "\n" + errorStyle.Render(m.errMsg)
	}
	return footer
}

// nextTrendWindow steps the moving average window up to the next multiple of 5.
func nextTrendWindow(n int) int {
	return (n/trendWindowStep + 1) * trendWindowStep
}

// prevTrendWindow steps down to the previous multiple of 5, bottoming out at 1.
func prevTrendWindow(n int) int {
	if n <= trendWindowStep {
		return 1
	}
	return (n - 1) / trendWindowStep * trendWindowStep
}
