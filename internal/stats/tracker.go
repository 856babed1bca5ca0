package stats

import (
	"context"
	"fmt"
	"sync"

	"github.com/verte-zerg/schulte/internal/model"
)

// Persister stores a recorded result together with the stats it produced.
type Persister interface {
	SaveResult(ctx context.Context, result model.SessionResult, next model.Stats) error
}

// Tracker is the single writer for Stats. Record and Current are safe for
// concurrent use; readers never observe a partially applied result.
type Tracker struct {
	mu      sync.RWMutex
	stats   model.Stats
	seen    map[string]struct{}
	persist Persister
}

// NewTracker returns a tracker starting from initial. persist may be nil.
func NewTracker(initial model.Stats, persist Persister) *Tracker {
	t := &Tracker{
		stats:   initial.Clone(),
		seen:    make(map[string]struct{}, len(initial.History)),
		persist: persist,
	}
	for _, r := range initial.History {
		if r.ID != "" {
			t.seen[r.ID] = struct{}{}
		}
	}
	return t
}

// Record applies result and persists it. A result whose ID was already
// recorded is ignored. If persisting fails the in-memory stats are unchanged.
func (t *Tracker) Record(ctx context.Context, result model.SessionResult) (model.Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if result.ID != "" {
		if _, dup := t.seen[result.ID]; dup {
			return t.stats.Clone(), nil
		}
	}
	next := RecordResult(result, t.stats)
	if t.persist != nil {
		if err := t.persist.SaveResult(ctx, result, next); err != nil {
			return t.stats.Clone(), fmt.Errorf("save result: %w", err)
		}
	}
	t.stats = next
	if result.ID != "" {
		t.seen[result.ID] = struct{}{}
	}
	return next.Clone(), nil
}

// Current returns a copy of the current stats.
func (t *Tracker) Current() model.Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats.Clone()
}
