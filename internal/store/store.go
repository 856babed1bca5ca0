// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/schulte/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Fixed-width so that lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for session results and stats.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := &Store{db: db}
	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// applyPragmas configures SQLite for a single local user. busy_timeout lets a
// second process wait for the writer instead of failing.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			grid_size INTEGER NOT NULL,
			max_time INTEGER NOT NULL,
			order_mode TEXT NOT NULL,
			outcome TEXT NOT NULL,
			elapsed_seconds REAL NOT NULL,
			mistakes INTEGER NOT NULL,
			correct_taps INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS best_times (
			key TEXT PRIMARY KEY,
			elapsed_seconds REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS counters (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total_sessions INTEGER NOT NULL,
			current_streak INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_grid ON sessions(grid_size, order_mode);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveResult stores a finished session and the stats it produced in one
// transaction. Counters are last-write-wins; a best time only ever decreases.
func (s *Store) SaveResult(ctx context.Context, result model.SessionResult, next model.Stats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, grid_size, max_time, order_mode, outcome, elapsed_seconds, mistakes, correct_taps)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		formatTime(result.StartedAt),
		formatTime(result.EndedAt),
		result.Config.Size,
		result.Config.MaxTimeSeconds,
		string(result.Config.Order),
		string(result.Outcome),
		result.ElapsedSeconds,
		result.MistakeCount,
		result.CorrectTaps,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO counters (id, total_sessions, current_streak) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			total_sessions = excluded.total_sessions,
			current_streak = excluded.current_streak`,
		next.TotalSessions, next.CurrentStreak,
	)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}

	key := result.Config.Key()
	if best, ok := next.BestTimes[key]; ok && result.Outcome == model.OutcomeCompleted {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO best_times (key, elapsed_seconds) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET
				elapsed_seconds = MIN(best_times.elapsed_seconds, excluded.elapsed_seconds)`,
			key, best,
		)
		if err != nil {
			return fmt.Errorf("update best time: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadStats reads counters, best times and the full history. Rows are
// returned as stored; callers are expected to sanitize them.
func (s *Store) LoadStats(ctx context.Context) (model.Stats, error) {
	st := model.NewStats()
	var total, streak any
	err := s.db.QueryRowContext(ctx,
		`SELECT total_sessions, current_streak FROM counters WHERE id = 1`,
	).Scan(&total, &streak)
	switch {
	case err == nil:
		st.TotalSessions = intValue(total)
		st.CurrentStreak = intValue(streak)
	case !errors.Is(err, sql.ErrNoRows):
		return model.Stats{}, fmt.Errorf("load counters: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, elapsed_seconds FROM best_times`)
	if err != nil {
		return model.Stats{}, fmt.Errorf("load best times: %w", err)
	}
	defer func() {
		// Best-effort rows close.
		_ = rows.Close()
	}()
	for rows.Next() {
		var key string
		var best any
		if err := rows.Scan(&key, &best); err != nil {
			return model.Stats{}, fmt.Errorf("scan best time: %w", err)
		}
		st.BestTimes[key] = floatValue(best)
	}
	if err := rows.Err(); err != nil {
		return model.Stats{}, fmt.Errorf("load best times: %w", err)
	}

	history, err := s.ListSessions(ctx, model.SessionFilter{})
	if err != nil {
		return model.Stats{}, err
	}
	st.History = history
	return st, nil
}

// ListSessions returns sessions matching filter, oldest first. With
// filter.Last set only the most recent matches are returned.
func (s *Store) ListSessions(ctx context.Context, filter model.SessionFilter) ([]model.SessionResult, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Size != 0 {
		clauses = append(clauses, "grid_size = ?")
		args = append(args, filter.Size)
	}
	if filter.Order != "" {
		clauses = append(clauses, "order_mode = ?")
		args = append(args, string(filter.Order))
	}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, grid_size, max_time, order_mode, outcome, elapsed_seconds, mistakes, correct_taps
		FROM sessions
		WHERE %s
		ORDER BY ended_at DESC, rowid DESC`, strings.Join(clauses, " AND "))
	if filter.Last > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Last)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() {
		// Best-effort rows close.
		_ = rows.Close()
	}()

	var sessions []model.SessionResult
	for rows.Next() {
		var r model.SessionResult
		var startedAt, endedAt, order, outcome string
		var size, maxTime, elapsed, mistakes, taps any
		if err := rows.Scan(&r.ID, &startedAt, &endedAt, &size, &maxTime, &order, &outcome, &elapsed, &mistakes, &taps); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		r.Config.Size = intValue(size)
		r.Config.MaxTimeSeconds = intValue(maxTime)
		r.Config.Order = model.Order(order)
		r.Outcome = model.Outcome(outcome)
		r.ElapsedSeconds = floatValue(elapsed)
		r.MistakeCount = intValue(mistakes)
		r.CorrectTaps = intValue(taps)
		r.StartedAt = parseTime(startedAt)
		r.EndedAt = parseTime(endedAt)
		sessions = append(sessions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}
	return sessions, nil
}

// SQLite keeps a value that does not fit a column's affinity as stored, so a
// numeric column can hold text. Such values come back as NaN or -1 and are
// dropped later by stats.Sanitize.
func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case []byte:
		return parseFloat(string(n))
	case string:
		return parseFloat(n)
	default:
		return math.NaN()
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func intValue(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return -1
		}
		return int(n)
	case []byte:
		return parseInt(string(n))
	case string:
		return parseInt(n)
	default:
		return -1
	}
}

func parseInt(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	return i
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime returns the zero time for malformed values.
func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
