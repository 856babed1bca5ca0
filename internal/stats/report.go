package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/schulte/internal/model"
)

// SessionSource provides persisted stats and session history.
type SessionSource interface {
	LoadStats(ctx context.Context) (model.Stats, error)
	ListSessions(ctx context.Context, filter model.SessionFilter) ([]model.SessionResult, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Stats    model.Stats
	Sessions []model.SessionResult
	Summary  Summary
	Repairs  []string
}

// BuildReport loads and prepares data for stats rendering. Malformed
// persisted stats are repaired and the repairs listed in Report.Repairs.
func BuildReport(ctx context.Context, src SessionSource, filter model.SessionFilter) (Report, error) {
	loaded, err := src.LoadStats(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load stats: %w", err)
	}
	st, repairs := Sanitize(loaded)

	sessions, err := src.ListSessions(ctx, filter)
	if err != nil {
		return Report{}, fmt.Errorf("list sessions: %w", err)
	}
	sessions = DropMalformed(sessions)
	return Report{
		Stats:    st,
		Sessions: sessions,
		Summary:  Summarize(sessions),
		Repairs:  repairs,
	}, nil
}

// Render writes the full text report.
func (r Report) Render(w io.Writer, window, width int) error {
	if err := RenderSummary(w, r.Stats, r.Sessions); err != nil {
		return err
	}
	if err := RenderBestTimes(w, r.Stats.BestTimes); err != nil {
		return err
	}
	if err := RenderTrend(w, r.Sessions, window, width); err != nil {
		return err
	}
	return RenderHistory(w, r.Sessions)
}
