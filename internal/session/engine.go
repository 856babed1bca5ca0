// Package session runs a single timed Schulte training session.
//
// The engine owns no clock goroutine: callers forward taps and drive
// timeouts by calling Tick with the current time. Taps for a given instant
// must be applied before the Tick for that instant.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/schulte/internal/model"
)

// State is the lifecycle state of the engine.
type State int

const (
	StateIdle      State = iota // No session started yet
	StateRunning                // Accepting taps
	StateCompleted              // Every value tapped in order
	StateTimedOut               // Time limit reached
	StateAbandoned              // Cancelled by the player or a restart
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed out"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateAbandoned
}

// GridSource builds grids for new sessions.
type GridSource interface {
	Generate(size int) (model.Grid, error)
}

// TapResult reports the effect of a single tap.
type TapResult struct {
	Correct  bool
	Finished bool
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	ID               string
	Config           model.GridConfig
	Grid             model.Grid
	State            State
	StartedAt        time.Time
	TargetIndex      int
	NextTarget       int // 0 once every value has been tapped
	Mistakes         int
	ElapsedSeconds   float64
	RemainingSeconds float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used by Start, Tap and Abandon.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithResultHandler registers fn to receive the result of every session.
// It is called exactly once per session, synchronously.
func WithResultHandler(fn func(model.SessionResult)) Option {
	return func(e *Engine) {
		e.onResult = fn
	}
}

// Engine owns the active session. It is not safe for concurrent use.
type Engine struct {
	gen      GridSource
	now      func() time.Time
	onResult func(model.SessionResult)

	id        string
	config    model.GridConfig
	grid      model.Grid
	state     State
	startedAt time.Time
	target    int
	mistakes  int
	elapsed   float64
	result    *model.SessionResult
}

// New constructs an idle engine.
func New(gen GridSource, opts ...Option) *Engine {
	e := &Engine{
		gen: gen,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start validates cfg and begins a new session, abandoning a running one.
// On error the current session is left untouched.
func (e *Engine) Start(cfg model.GridConfig) (Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return Snapshot{}, err
	}
	grid, err := e.gen.Generate(cfg.Size)
	if err != nil {
		return Snapshot{}, fmt.Errorf("generate grid: %w", err)
	}
	if len(grid.Cells) != cfg.Cells() {
		return Snapshot{}, fmt.Errorf("generate grid: expected %d cells, got %d", cfg.Cells(), len(grid.Cells))
	}

	now := e.now()
	if e.state == StateRunning {
		e.finish(model.OutcomeAbandoned, e.cappedElapsed(now), now)
	}

	e.id = uuid.NewString()
	e.config = cfg
	e.grid = grid
	e.state = StateRunning
	e.startedAt = now
	e.target = 0
	e.mistakes = 0
	e.elapsed = 0
	e.result = nil
	return e.Snapshot(now), nil
}

// Tap checks value against the next expected value.
// A wrong value counts as a mistake and never blocks progress.
// Only Tick enforces the limit: a final tap that arrives after the limit but
// before the next Tick completes the session with the longer elapsed time.
// Hosts that want the timeout to win call Tick first.
func (e *Engine) Tap(value int) (TapResult, error) {
	if e.state != StateRunning {
		return TapResult{}, fmt.Errorf("%w: tap while %s", model.ErrInvalidState, e.state)
	}
	if value != e.expected() {
		e.mistakes++
		return TapResult{}, nil
	}
	e.target++
	if e.target < e.config.Cells() {
		return TapResult{Correct: true}, nil
	}
	now := e.now()
	e.finish(model.OutcomeCompleted, e.elapsedAt(now), now)
	return TapResult{Correct: true, Finished: true}, nil
}

// Tick times out the session once the limit has been reached at now.
// It reports whether this call ended the session.
func (e *Engine) Tick(now time.Time) bool {
	if e.state != StateRunning {
		return false
	}
	if now.Sub(e.startedAt) < e.limit() {
		return false
	}
	e.finish(model.OutcomeTimedOut, float64(e.config.MaxTimeSeconds), now)
	return true
}

// Abandon cancels a running session. It is a no-op in any other state and
// reports whether a session was abandoned.
func (e *Engine) Abandon() bool {
	if e.state != StateRunning {
		return false
	}
	now := e.now()
	e.finish(model.OutcomeAbandoned, e.cappedElapsed(now), now)
	return true
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// LastResult returns the result of the most recently finished session, if
// the current session has finished.
func (e *Engine) LastResult() (model.SessionResult, bool) {
	if e.result == nil {
		return model.SessionResult{}, false
	}
	return *e.result, true
}

// Snapshot returns the session as seen at now.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		ID:          e.id,
		Config:      e.config,
		Grid:        model.Grid{Size: e.grid.Size, Cells: append([]int(nil), e.grid.Cells...)},
		State:       e.state,
		StartedAt:   e.startedAt,
		TargetIndex: e.target,
		Mistakes:    e.mistakes,
	}
	switch {
	case e.state == StateRunning:
		snap.ElapsedSeconds = e.cappedElapsed(now)
		snap.NextTarget = e.expected()
	case e.state.Terminal():
		snap.ElapsedSeconds = e.elapsed
		if e.target < e.config.Cells() {
			snap.NextTarget = e.expected()
		}
	}
	if e.state != StateIdle {
		snap.RemainingSeconds = float64(e.config.MaxTimeSeconds) - snap.ElapsedSeconds
		if snap.RemainingSeconds < 0 {
			snap.RemainingSeconds = 0
		}
	}
	return snap
}

func (e *Engine) expected() int {
	if e.config.Order == model.OrderDesc {
		return e.config.Cells() - e.target
	}
	return e.target + 1
}

func (e *Engine) limit() time.Duration {
	return time.Duration(e.config.MaxTimeSeconds) * time.Second
}

func (e *Engine) elapsedAt(now time.Time) float64 {
	d := now.Sub(e.startedAt)
	if d < 0 {
		return 0
	}
	return d.Seconds()
}

func (e *Engine) cappedElapsed(now time.Time) float64 {
	elapsed := e.elapsedAt(now)
	return min(elapsed, float64(e.config.MaxTimeSeconds))
}

func (e *Engine) finish(outcome model.Outcome, elapsed float64, now time.Time) {
	switch outcome {
	case model.OutcomeCompleted:
		e.state = StateCompleted
	case model.OutcomeTimedOut:
		e.state = StateTimedOut
	default:
		e.state = StateAbandoned
	}
	e.elapsed = elapsed
	result := model.SessionResult{
		ID:             e.id,
		Config:         e.config,
		StartedAt:      e.startedAt,
		EndedAt:        now,
		ElapsedSeconds: elapsed,
		MistakeCount:   e.mistakes,
		CorrectTaps:    e.target,
		Outcome:        outcome,
	}
	e.result = &result
	if e.onResult != nil {
		e.onResult(result)
	}
}
