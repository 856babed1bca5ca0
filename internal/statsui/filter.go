package statsui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/verte-zerg/schulte/internal/model"
)

const (
	fieldSize = iota
	fieldOrder
	fieldSince
	fieldLast
	fieldWindow
)

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Grid size: "),
		newFilterInput("Order (asc/desc): "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Trend window: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	f := m.cfg.Filter
	size := ""
	if f.Size > 0 {
		size = strconv.Itoa(f.Size)
	}
	m.filterInputs[fieldSize].SetValue(size)
	m.filterInputs[fieldOrder].SetValue(strings.ToLower(string(f.Order)))
	since := ""
	if f.Since != nil {
		since = f.Since.Format("2006-01-02")
	}
	m.filterInputs[fieldSince].SetValue(since)
	last := ""
	if f.Last > 0 {
		last = strconv.Itoa(f.Last)
	}
	m.filterInputs[fieldLast].SetValue(last)
	m.filterInputs[fieldWindow].SetValue(strconv.Itoa(m.cfg.Window))
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		cfg, err := parseFilter(m.filterInputs)
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.cfg = cfg
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.resize()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func parseFilter(inputs []textinput.Model) (Config, error) {
	var cfg Config
	if v := strings.TrimSpace(inputs[fieldSize].Value()); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || model.ValidateSize(size) != nil {
			return Config{}, fmt.Errorf("invalid grid size (use %d-%d)", model.MinGridSize, model.MaxGridSize)
		}
		cfg.Filter.Size = size
	}
	if v := strings.TrimSpace(inputs[fieldOrder].Value()); v != "" {
		order, err := model.ParseOrder(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid order (use asc or desc)")
		}
		cfg.Filter.Order = order
	}
	if v := strings.TrimSpace(inputs[fieldSince].Value()); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return Config{}, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		cfg.Filter.Since = &parsed
	}
	if v := strings.TrimSpace(inputs[fieldLast].Value()); v != "" {
		last, err := strconv.Atoi(v)
		if err != nil || last < 0 {
			return Config{}, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		cfg.Filter.Last = last
	}
	cfg.Window = defaultTrendWindow
	if v := strings.TrimSpace(inputs[fieldWindow].Value()); v != "" {
		window, err := strconv.Atoi(v)
		if err != nil || window < 1 {
			return Config{}, fmt.Errorf("invalid trend window (use integer >= 1)")
		}
		cfg.Window = window
	}
	return cfg, nil
}

func (m *Model) renderFilterSummary() string {
	f := m.cfg.Filter
	size := "any"
	if f.Size > 0 {
		size = fmt.Sprintf("%dx%d", f.Size, f.Size)
	}
	order := "any"
	if f.Order != "" {
		order = strings.ToLower(string(f.Order))
	}
	since := "any"
	if f.Since != nil {
		since = f.Since.Format("2006-01-02")
	}
	last := "all"
	if f.Last > 0 {
		last = strconv.Itoa(f.Last)
	}
	summary := fmt.Sprintf("Filter: grid=%s  order=%s  since=%s  last=%s  window=%d", size, order, since, last, m.cfg.Window)
	return headerStyle.Render(ansi.Truncate(summary, m.width, "..."))
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}
