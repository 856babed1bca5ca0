// Package stats folds session results into statistics and renders reports.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/schulte/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary describes a set of sessions.
type Summary struct {
	Sessions       int
	Completed      int
	TimedOut       int
	Abandoned      int
	CompletionRate float64
	AvgTime        float64 // over completed sessions
	BestTime       float64 // 0 when nothing was completed
	AvgMistakes    float64
}

// Summarize computes a Summary for sessions.
func Summarize(sessions []model.SessionResult) Summary {
	var s Summary
	var totalTime float64
	var totalMistakes int
	for _, r := range sessions {
		s.Sessions++
		totalMistakes += r.MistakeCount
		switch r.Outcome {
		case model.OutcomeCompleted:
			s.Completed++
			totalTime += r.ElapsedSeconds
			if s.BestTime == 0 || r.ElapsedSeconds < s.BestTime {
				s.BestTime = r.ElapsedSeconds
			}
		case model.OutcomeTimedOut:
			s.TimedOut++
		case model.OutcomeAbandoned:
			s.Abandoned++
		}
	}
	if s.Sessions > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Sessions)
		s.AvgMistakes = float64(totalMistakes) / float64(s.Sessions)
	}
	if s.Completed > 0 {
		s.AvgTime = totalTime / float64(s.Completed)
	}
	return s
}

// FormatTimeShort renders seconds as "42.3s" below a minute and "1:05.2" above.
func FormatTimeShort(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	tenths := int64(math.Round(seconds * 10))
	if tenths < 600 {
		return fmt.Sprintf("%d.%ds", tenths/10, tenths%10)
	}
	minutes := tenths / 600
	rest := tenths % 600
	return fmt.Sprintf("%d:%02d.%d", minutes, rest/10, rest%10)
}

// CompletionTimes returns elapsed seconds of completed sessions in order.
func CompletionTimes(sessions []model.SessionResult) []float64 {
	var out []float64
	for _, r := range sessions {
		if r.Outcome == model.OutcomeCompleted {
			out = append(out, r.ElapsedSeconds)
		}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Tail keeps at most n trailing values. n <= 0 keeps everything.
func Tail(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// RenderSummary prints totals, streak and a summary of sessions.
func RenderSummary(w io.Writer, st model.Stats, sessions []model.SessionResult) error {
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Total sessions: %d\n", st.TotalSessions); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Current streak: %d\n", st.CurrentStreak); err != nil {
		return err
	}
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := Summarize(sessions)
	lines := []string{
		fmt.Sprintf("Sessions shown: %d (%d completed, %d timed out, %d abandoned)", sum.Sessions, sum.Completed, sum.TimedOut, sum.Abandoned),
		fmt.Sprintf("Completion rate: %.1f%%", sum.CompletionRate*100),
		fmt.Sprintf("Avg mistakes: %.2f", sum.AvgMistakes),
	}
	if sum.Completed > 0 {
		lines = append(lines,
			fmt.Sprintf("Avg time: %s", FormatTimeShort(sum.AvgTime)),
			fmt.Sprintf("Best time: %s", FormatTimeShort(sum.BestTime)),
		)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderBestTimes prints best times per grid size and order.
func RenderBestTimes(w io.Writer, bestTimes map[string]float64) error {
	if _, err := fmt.Fprintln(w, "Best Times"); err != nil {
		return err
	}
	if len(bestTimes) == 0 {
		if _, err := fmt.Fprintln(w, "No completed sessions yet."); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, "")
		return err
	}
	tbl := newTextTable(column{title: "Grid"}, column{title: "Order"}, column{title: "Best", align: alignRight})
	for _, key := range SortedKeys(bestTimes) {
		size, order, err := model.ParseBestTimeKey(key)
		if err != nil {
			continue
		}
		tbl.add(fmt.Sprintf("%dx%d", size, size), orderLabel(order, size), FormatTimeShort(bestTimes[key]))
	}
	if err := tbl.write(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderHistory prints one row per session, oldest first.
func RenderHistory(w io.Writer, sessions []model.SessionResult) error {
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	cols := make([]column, 0, len(HistoryHeaders()))
	for i, title := range HistoryHeaders() {
		c := column{title: title}
		if i >= 4 {
			c.align = alignRight
		}
		cols = append(cols, c)
	}
	tbl := newTextTable(cols...)
	for _, row := range HistoryRows(sessions) {
		tbl.add(row...)
	}
	if err := tbl.write(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderTrend prints a sparkline of completion times smoothed over window.
func RenderTrend(w io.Writer, sessions []model.SessionResult, window, width int) error {
	times := CompletionTimes(sessions)
	if len(times) == 0 {
		return nil
	}
	smoothed := Tail(MovingAverage(times, window), width)
	if _, err := fmt.Fprintf(w, "Completion time trend (window %d, lower is better)\n", window); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, Sparkline(smoothed)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// HistoryHeaders returns the column titles used for history tables.
func HistoryHeaders() []string {
	return []string{"Date", "Grid", "Order", "Outcome", "Time", "Mistakes"}
}

// HistoryRows formats sessions as history table rows.
func HistoryRows(sessions []model.SessionResult) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, r := range sessions {
		rows = append(rows, []string{
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%dx%d", r.Config.Size, r.Config.Size),
			orderLabel(r.Config.Order, r.Config.Size),
			OutcomeLabel(r.Outcome),
			FormatTimeShort(r.ElapsedSeconds),
			fmt.Sprintf("%d", r.MistakeCount),
		})
	}
	return rows
}

// OutcomeLabel returns a human readable outcome.
func OutcomeLabel(o model.Outcome) string {
	switch o {
	case model.OutcomeCompleted:
		return "completed"
	case model.OutcomeTimedOut:
		return "timed out"
	case model.OutcomeAbandoned:
		return "abandoned"
	default:
		return string(o)
	}
}

// SortedKeys returns best-time keys ordered by grid size, then ascending before descending.
func SortedKeys(bestTimes map[string]float64) []string {
	keys := make([]string, 0, len(bestTimes))
	for k := range bestTimes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orderLabel(order model.Order, size int) string {
	n := size * size
	if order == model.OrderDesc {
		return fmt.Sprintf("%d → 1", n)
	}
	return fmt.Sprintf("1 → %d", n)
}
