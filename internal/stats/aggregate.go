package stats

import (
	"fmt"
	"math"

	"github.com/verte-zerg/schulte/internal/model"
)

// RecordResult folds a finished session into prior and returns the new stats.
// prior is not modified.
func RecordResult(result model.SessionResult, prior model.Stats) model.Stats {
	next := prior.Clone()
	next.TotalSessions++
	if result.Outcome == model.OutcomeCompleted {
		next.CurrentStreak++
		key := result.Config.Key()
		if best, ok := next.BestTimes[key]; !ok || result.ElapsedSeconds < best {
			next.BestTimes[key] = result.ElapsedSeconds
		}
	} else {
		next.CurrentStreak = 0
	}
	next.History = append(next.History, result)
	return next
}

// Sanitize repairs stats loaded from storage. Counters below zero are reset,
// malformed best times and history entries are dropped, and best times are
// lowered to the fastest completion present in history. It returns the
// repaired stats and a description of every repair.
func Sanitize(s model.Stats) (model.Stats, []string) {
	var repairs []string
	out := model.Stats{
		TotalSessions: s.TotalSessions,
		CurrentStreak: s.CurrentStreak,
		BestTimes:     map[string]float64{},
		History:       []model.SessionResult{},
	}
	if out.TotalSessions < 0 {
		repairs = append(repairs, fmt.Sprintf("total sessions %d reset to 0", out.TotalSessions))
		out.TotalSessions = 0
	}
	if out.CurrentStreak < 0 {
		repairs = append(repairs, fmt.Sprintf("streak %d reset to 0", out.CurrentStreak))
		out.CurrentStreak = 0
	}

	for key, v := range s.BestTimes {
		if _, _, err := model.ParseBestTimeKey(key); err != nil {
			repairs = append(repairs, fmt.Sprintf("dropped best time with key %q", key))
			continue
		}
		if !validElapsed(v) || v == 0 {
			repairs = append(repairs, fmt.Sprintf("dropped best time %v for %s", v, key))
			continue
		}
		out.BestTimes[key] = v
	}

	for _, r := range s.History {
		if !validResult(r) {
			repairs = append(repairs, fmt.Sprintf("dropped history entry %q", r.ID))
			continue
		}
		out.History = append(out.History, r)
		if r.Outcome != model.OutcomeCompleted {
			continue
		}
		key := r.Config.Key()
		if best, ok := out.BestTimes[key]; !ok || r.ElapsedSeconds < best {
			if ok {
				repairs = append(repairs, fmt.Sprintf("best time for %s lowered from history", key))
			}
			out.BestTimes[key] = r.ElapsedSeconds
		}
	}

	if out.TotalSessions < len(out.History) {
		repairs = append(repairs, fmt.Sprintf("total sessions raised to %d", len(out.History)))
		out.TotalSessions = len(out.History)
	}
	return out, repairs
}

// DropMalformed returns the sessions that Sanitize would keep, in order.
func DropMalformed(sessions []model.SessionResult) []model.SessionResult {
	kept := make([]model.SessionResult, 0, len(sessions))
	for _, r := range sessions {
		if validResult(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

func validResult(r model.SessionResult) bool {
	return r.Outcome.Valid() &&
		r.Config.Validate() == nil &&
		validElapsed(r.ElapsedSeconds) &&
		r.MistakeCount >= 0 &&
		r.CorrectTaps >= 0
}

func validElapsed(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
