package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/schulte/internal/model"
	"github.com/verte-zerg/schulte/internal/stats"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "schulte.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func testResult(id string, size int, order model.Order, outcome model.Outcome, elapsed float64, endedAt time.Time) model.SessionResult {
	return model.SessionResult{
		ID:             id,
		Config:         model.GridConfig{Size: size, MaxTimeSeconds: 90, Order: order},
		StartedAt:      endedAt.Add(-time.Duration(elapsed * float64(time.Second))),
		EndedAt:        endedAt,
		ElapsedSeconds: elapsed,
		MistakeCount:   2,
		CorrectTaps:    size * size,
		Outcome:        outcome,
	}
}

func TestLoadStatsEmpty(t *testing.T) {
	st := openTestStore(t)
	stats, err := st.LoadStats(context.Background())
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if stats.TotalSessions != 0 || stats.CurrentStreak != 0 {
		t.Fatalf("expected zero counters, got %+v", stats)
	}
	if len(stats.BestTimes) != 0 || len(stats.History) != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
	if stats.BestTimes == nil {
		t.Fatalf("expected non-nil best times map")
	}
}

func TestSaveResultRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	r := testResult("s1", 5, model.OrderAsc, model.OutcomeCompleted, 42.5, base)
	next := model.Stats{
		TotalSessions: 1,
		CurrentStreak: 1,
		BestTimes:     map[string]float64{"5-ASC": 42.5},
	}
	if err := st.SaveResult(ctx, r, next); err != nil {
		t.Fatalf("save result: %v", err)
	}

	loaded, err := st.LoadStats(ctx)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if loaded.TotalSessions != 1 || loaded.CurrentStreak != 1 {
		t.Fatalf("unexpected counters: %+v", loaded)
	}
	if loaded.BestTimes["5-ASC"] != 42.5 {
		t.Fatalf("unexpected best time: %v", loaded.BestTimes)
	}
	if len(loaded.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(loaded.History))
	}
	got := loaded.History[0]
	if got.ID != "s1" || got.Outcome != model.OutcomeCompleted || got.Config != r.Config {
		t.Fatalf("unexpected history entry: %+v", got)
	}
	if !got.EndedAt.Equal(r.EndedAt) || !got.StartedAt.Equal(r.StartedAt) {
		t.Fatalf("timestamps not preserved: %+v", got)
	}
	if got.MistakeCount != 2 || got.CorrectTaps != 25 {
		t.Fatalf("unexpected counts: %+v", got)
	}
}

func TestSaveResultNeverRaisesBestTime(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	fast := testResult("fast", 6, model.OrderDesc, model.OutcomeCompleted, 30, base)
	if err := st.SaveResult(ctx, fast, model.Stats{TotalSessions: 1, CurrentStreak: 1, BestTimes: map[string]float64{"6-DESC": 30}}); err != nil {
		t.Fatalf("save fast: %v", err)
	}
	// A writer holding stale stats must not overwrite the lower stored time.
	slow := testResult("slow", 6, model.OrderDesc, model.OutcomeCompleted, 45, base.Add(time.Minute))
	if err := st.SaveResult(ctx, slow, model.Stats{TotalSessions: 1, CurrentStreak: 1, BestTimes: map[string]float64{"6-DESC": 45}}); err != nil {
		t.Fatalf("save slow: %v", err)
	}

	loaded, err := st.LoadStats(ctx)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if loaded.BestTimes["6-DESC"] != 30 {
		t.Fatalf("expected best time 30, got %v", loaded.BestTimes["6-DESC"])
	}
	if len(loaded.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(loaded.History))
	}
}

func TestSaveResultSkipsBestTimeForFailures(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := testResult("t1", 7, model.OrderAsc, model.OutcomeTimedOut, 90, time.Now())
	if err := st.SaveResult(ctx, r, model.Stats{TotalSessions: 1, BestTimes: map[string]float64{}}); err != nil {
		t.Fatalf("save result: %v", err)
	}
	loaded, err := st.LoadStats(ctx)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if len(loaded.BestTimes) != 0 {
		t.Fatalf("expected no best times, got %v", loaded.BestTimes)
	}
	if loaded.CurrentStreak != 0 || loaded.TotalSessions != 1 {
		t.Fatalf("unexpected counters: %+v", loaded)
	}
}

func TestSaveResultDuplicateIDRollsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := testResult("dup", 5, model.OrderAsc, model.OutcomeCompleted, 40, time.Now())
	if err := st.SaveResult(ctx, r, model.Stats{TotalSessions: 1, CurrentStreak: 1, BestTimes: map[string]float64{"5-ASC": 40}}); err != nil {
		t.Fatalf("save result: %v", err)
	}
	if err := st.SaveResult(ctx, r, model.Stats{TotalSessions: 2, CurrentStreak: 2, BestTimes: map[string]float64{"5-ASC": 40}}); err == nil {
		t.Fatalf("expected duplicate insert to fail")
	}
	loaded, err := st.LoadStats(ctx)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if loaded.TotalSessions != 1 || loaded.CurrentStreak != 1 {
		t.Fatalf("expected counters untouched after rollback, got %+v", loaded)
	}
}

func TestListSessionsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	inputs := []model.SessionResult{
		testResult("a", 5, model.OrderAsc, model.OutcomeCompleted, 40, base),
		testResult("b", 6, model.OrderAsc, model.OutcomeCompleted, 50, base.Add(1*time.Minute)),
		testResult("c", 5, model.OrderDesc, model.OutcomeAbandoned, 10, base.Add(2*time.Minute)),
		testResult("d", 5, model.OrderAsc, model.OutcomeTimedOut, 90, base.Add(3*time.Minute)),
		testResult("e", 5, model.OrderAsc, model.OutcomeCompleted, 38, base.Add(4*time.Minute)),
	}
	for i, r := range inputs {
		if err := st.SaveResult(ctx, r, model.Stats{TotalSessions: i + 1, BestTimes: map[string]float64{}}); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}

	all, err := st.ListSessions(ctx, model.SessionFilter{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if ids := sessionIDs(all); ids != "abcde" {
		t.Fatalf("expected chronological order, got %s", ids)
	}

	fiveAsc, err := st.ListSessions(ctx, model.SessionFilter{Size: 5, Order: model.OrderAsc})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if ids := sessionIDs(fiveAsc); ids != "ade" {
		t.Fatalf("unexpected filtered sessions: %s", ids)
	}

	last, err := st.ListSessions(ctx, model.SessionFilter{Last: 2})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if ids := sessionIDs(last); ids != "de" {
		t.Fatalf("unexpected last sessions: %s", ids)
	}

	since := base.Add(90 * time.Second)
	recent, err := st.ListSessions(ctx, model.SessionFilter{Since: &since})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if ids := sessionIDs(recent); ids != "cde" {
		t.Fatalf("unexpected sessions since: %s", ids)
	}
}

func sessionIDs(sessions []model.SessionResult) string {
	out := ""
	for _, s := range sessions {
		out += s.ID
	}
	return out
}

func TestLoadStatsSurvivesCorruptRows(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	next := model.NewStats()
	for i, id := range []string{"a", "b", "c"} {
		r := testResult(id, 5, model.OrderAsc, model.OutcomeCompleted, float64(30+i), base.Add(time.Duration(i)*time.Minute))
		next = stats.RecordResult(r, next)
		if err := st.SaveResult(ctx, r, next); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if _, err := st.db.ExecContext(ctx, `UPDATE sessions SET elapsed_seconds = 'oops', mistakes = 'x' WHERE id = 'a'`); err != nil {
		t.Fatalf("corrupt session: %v", err)
	}
	if _, err := st.db.ExecContext(ctx, `INSERT INTO best_times (key, elapsed_seconds) VALUES ('6-ASC', 'fast')`); err != nil {
		t.Fatalf("corrupt best time: %v", err)
	}

	loaded, err := st.LoadStats(ctx)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if len(loaded.History) != 3 || !math.IsNaN(loaded.History[0].ElapsedSeconds) {
		t.Fatalf("expected the corrupt row to load as NaN, got %+v", loaded.History)
	}
	if loaded.TotalSessions != 3 || loaded.CurrentStreak != 3 {
		t.Fatalf("expected counters to survive, got %d/%d", loaded.TotalSessions, loaded.CurrentStreak)
	}

	clean, repairs := stats.Sanitize(loaded)
	if len(repairs) != 2 {
		t.Fatalf("expected 2 repairs, got %q", repairs)
	}
	if sessionIDs(clean.History) != "bc" {
		t.Fatalf("expected b and c to survive, got %s", sessionIDs(clean.History))
	}
	if clean.TotalSessions != 3 || clean.BestTimes["5-ASC"] != 30 {
		t.Fatalf("unexpected clean stats %+v", clean)
	}
	if _, ok := clean.BestTimes["6-ASC"]; ok {
		t.Fatalf("expected malformed best time to be dropped")
	}

	report, err := stats.BuildReport(ctx, st, model.SessionFilter{})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if sessionIDs(report.Sessions) != "bc" || len(report.Repairs) != 2 {
		t.Fatalf("unexpected report sessions %s repairs %q", sessionIDs(report.Sessions), report.Repairs)
	}
}
