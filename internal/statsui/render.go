package statsui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/verte-zerg/schulte/internal/model"
	"github.com/verte-zerg/schulte/internal/stats"
)

func renderOverview(report stats.Report, window, width int) string {
	parts := []string{renderSummaryCards(report, width)}
	var buf bytes.Buffer
	if err := stats.RenderBestTimes(&buf, report.Stats.BestTimes); err != nil {
		return fmt.Sprintf("Failed to render best times: %v", err)
	}
	if len(report.Sessions) > 0 {
		if err := stats.RenderTrend(&buf, report.Sessions, window, max(10, width-2)); err != nil {
			return fmt.Sprintf("Failed to render trend: %v", err)
		}
	}
	parts = append(parts, strings.TrimRight(buf.String(), "\n"))
	if len(report.Repairs) > 0 {
		parts = append(parts, headerStyle.Render(fmt.Sprintf("Repaired %d malformed stats entries on load.", len(report.Repairs))))
	}
	return strings.Join(parts, "\n\n")
}

func renderSummaryCards(report stats.Report, width int) string {
	sum := report.Summary
	best := "-"
	avg := "-"
	if sum.Completed > 0 {
		best = stats.FormatTimeShort(sum.BestTime)
		avg = stats.FormatTimeShort(sum.AvgTime)
	}
	cards := []string{
		metricCard("Total", fmt.Sprintf("%d", report.Stats.TotalSessions)),
		metricCard("Streak", fmt.Sprintf("%d", report.Stats.CurrentStreak)),
		metricCard("Shown", fmt.Sprintf("%d", sum.Sessions)),
		metricCard("Completion", fmt.Sprintf("%.1f%%", sum.CompletionRate*100)),
		metricCard("Best", best),
		metricCard("Avg Time", avg),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func historyColumns() []table.Column {
	headers := stats.HistoryHeaders()
	widths := []int{16, 5, 8, 10, 8, 8}
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: widths[i]}
	}
	return cols
}

func historyRows(sessions []model.SessionResult) []table.Row {
	raw := stats.HistoryRows(sessions)
	rows := make([]table.Row, len(raw))
	for i, r := range raw {
		rows[i] = table.Row(r)
	}
	return rows
}

func newHistoryTable() table.Model {
	t := table.New(
		table.WithColumns(historyColumns()),
		table.WithHeight(1),
	)
	t.SetStyles(historyTableStyles())
	return t
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = lipgloss.NewStyle().
		Foreground(muted).
		Bold(true).
		PaddingRight(1).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#3A3A3A"))
	styles.Cell = lipgloss.NewStyle().PaddingRight(1)
	styles.Selected = lipgloss.NewStyle().Foreground(accent).Bold(true)
	return styles
}

// fitBlock clips or pads s to exactly height lines of width cells each.
func fitBlock(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	src := strings.Split(s, "\n")
	out := make([]string, height)
	for i := range out {
		if i < len(src) {
			out[i] = fitLine(src[i], width)
		} else {
			out[i] = strings.Repeat(" ", width)
		}
	}
	return strings.Join(out, "\n")
}

// fitLine clips line to width cells without breaking escape sequences, then pads it.
func fitLine(line string, width int) string {
	line = ansi.Truncate(line, width, "")
	return line + strings.Repeat(" ", max(0, width-ansi.StringWidth(line)))
}
