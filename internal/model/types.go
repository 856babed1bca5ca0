// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Grid limits.
const (
	MinGridSize = 5
	MaxGridSize = 7
	MinMaxTime  = 30
	MaxMaxTime  = 300
)

// Order is the direction in which grid values must be tapped.
type Order string

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

// ParseOrder accepts "asc" or "desc" in any case.
func ParseOrder(s string) (Order, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(OrderAsc):
		return OrderAsc, nil
	case string(OrderDesc):
		return OrderDesc, nil
	default:
		return "", fmt.Errorf("%w: unknown order %q", ErrInvalidConfig, s)
	}
}

// Valid reports whether o is a known order mode.
func (o Order) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// GridConfig defines a training session.
type GridConfig struct {
	Size           int   `json:"size" yaml:"size"`
	MaxTimeSeconds int   `json:"max_time_seconds" yaml:"max_time_seconds"`
	Order          Order `json:"order" yaml:"order"`
}

// Validate checks size, time limit and order mode.
func (c GridConfig) Validate() error {
	if err := ValidateSize(c.Size); err != nil {
		return err
	}
	if c.MaxTimeSeconds < MinMaxTime || c.MaxTimeSeconds > MaxMaxTime {
		return fmt.Errorf("%w: time limit must be between %d and %d seconds, got %d", ErrInvalidConfig, MinMaxTime, MaxMaxTime, c.MaxTimeSeconds)
	}
	if !c.Order.Valid() {
		return fmt.Errorf("%w: unknown order %q", ErrInvalidConfig, c.Order)
	}
	return nil
}

// Cells returns the number of cells in the grid.
func (c GridConfig) Cells() int {
	return c.Size * c.Size
}

// Key returns the best-time key for the config.
func (c GridConfig) Key() string {
	return BestTimeKey(c.Size, c.Order)
}

// ValidateSize checks that size is a supported grid size.
func ValidateSize(size int) error {
	if size < MinGridSize || size > MaxGridSize {
		return fmt.Errorf("%w: grid size must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, size)
	}
	return nil
}

// BestTimeKey builds the "<size>-<order>" key used for best times.
func BestTimeKey(size int, order Order) string {
	return fmt.Sprintf("%d-%s", size, order)
}

// ParseBestTimeKey splits a best-time key. It rejects unknown sizes and orders.
func ParseBestTimeKey(key string) (int, Order, error) {
	sizePart, orderPart, ok := strings.Cut(key, "-")
	if !ok {
		return 0, "", fmt.Errorf("malformed best time key %q", key)
	}
	var size int
	if _, err := fmt.Sscanf(sizePart, "%d", &size); err != nil {
		return 0, "", fmt.Errorf("malformed best time key %q: %w", key, err)
	}
	if err := ValidateSize(size); err != nil {
		return 0, "", err
	}
	order := Order(orderPart)
	if !order.Valid() {
		return 0, "", fmt.Errorf("malformed best time key %q", key)
	}
	return size, order, nil
}

// Grid is a square arrangement of the values 1..Size*Size stored row-major.
type Grid struct {
	Size  int   `json:"size"`
	Cells []int `json:"cells"`
}

// At returns the value at the given row and column.
func (g Grid) At(row, col int) int {
	return g.Cells[row*g.Size+col]
}

// Rows returns the grid as a slice of rows. The rows share no memory with g.
func (g Grid) Rows() [][]int {
	rows := make([][]int, g.Size)
	for r := 0; r < g.Size; r++ {
		rows[r] = append([]int(nil), g.Cells[r*g.Size:(r+1)*g.Size]...)
	}
	return rows
}

// Position returns the row and column holding value.
func (g Grid) Position(value int) (row, col int, ok bool) {
	for i, v := range g.Cells {
		if v == value {
			return i / g.Size, i % g.Size, true
		}
	}
	return 0, 0, false
}

// Contains reports whether value is in the grid.
func (g Grid) Contains(value int) bool {
	_, _, ok := g.Position(value)
	return ok
}

// Outcome describes how a session ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeAbandoned Outcome = "abandoned"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeTimedOut, OutcomeAbandoned:
		return true
	}
	return false
}

// SessionResult captures a finished training session.
type SessionResult struct {
	ID             string     `json:"id" yaml:"id"`
	Config         GridConfig `json:"config" yaml:"config"`
	StartedAt      time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt        time.Time  `json:"ended_at" yaml:"ended_at"`
	ElapsedSeconds float64    `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	MistakeCount   int        `json:"mistake_count" yaml:"mistake_count"`
	CorrectTaps    int        `json:"correct_taps" yaml:"correct_taps"`
	Outcome        Outcome    `json:"outcome" yaml:"outcome"`
}

// Stats aggregates results across sessions.
type Stats struct {
	TotalSessions int                `json:"total_sessions" yaml:"total_sessions"`
	CurrentStreak int                `json:"current_streak" yaml:"current_streak"`
	BestTimes     map[string]float64 `json:"best_times" yaml:"best_times"`
	History       []SessionResult    `json:"history" yaml:"history"`
}

// NewStats returns empty stats.
func NewStats() Stats {
	return Stats{BestTimes: map[string]float64{}}
}

// Clone returns a deep copy of s.
func (s Stats) Clone() Stats {
	out := Stats{
		TotalSessions: s.TotalSessions,
		CurrentStreak: s.CurrentStreak,
		BestTimes:     make(map[string]float64, len(s.BestTimes)),
		History:       append([]SessionResult(nil), s.History...),
	}
	for k, v := range s.BestTimes {
		out.BestTimes[k] = v
	}
	return out
}

// BestTime returns the best completion time for a key.
func (s Stats) BestTime(key string) (float64, bool) {
	v, ok := s.BestTimes[key]
	return v, ok
}

// Preferences holds user defaults and display toggles.
type Preferences struct {
	DefaultGridSize int  `json:"default_grid_size" yaml:"default_grid_size"`
	DefaultMaxTime  int  `json:"default_max_time" yaml:"default_max_time"`
	HapticFeedback  bool `json:"haptic_feedback" yaml:"haptic_feedback"`
	ShowHints       bool `json:"show_hints" yaml:"show_hints"`
	ShowFixationDot bool `json:"show_fixation_dot" yaml:"show_fixation_dot"`
}

// DefaultPreferences returns the built-in preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		DefaultGridSize: 5,
		DefaultMaxTime:  120,
		HapticFeedback:  true,
		ShowHints:       false,
		ShowFixationDot: true,
	}
}

// SessionFilter narrows history queries.
type SessionFilter struct {
	Size  int
	Order Order
	Since *time.Time
	Last  int
}
