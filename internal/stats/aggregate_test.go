package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/schulte/internal/model"
)

func result(size int, order model.Order, outcome model.Outcome, elapsed float64) model.SessionResult {
	return model.SessionResult{
		Config:         model.GridConfig{Size: size, MaxTimeSeconds: 120, Order: order},
		ElapsedSeconds: elapsed,
		Outcome:        outcome,
	}
}

func TestRecordResultCompleted(t *testing.T) {
	prior := model.NewStats()
	next := RecordResult(result(5, model.OrderAsc, model.OutcomeCompleted, 41.5), prior)

	assert.Equal(t, 1, next.TotalSessions)
	assert.Equal(t, 1, next.CurrentStreak)
	assert.Equal(t, 41.5, next.BestTimes["5-ASC"])
	require.Len(t, next.History, 1)

	assert.Equal(t, 0, prior.TotalSessions)
	assert.Empty(t, prior.BestTimes)
	assert.Empty(t, prior.History)
}

func TestRecordResultKeepsFasterBest(t *testing.T) {
	st := model.NewStats()
	st = RecordResult(result(6, model.OrderDesc, model.OutcomeCompleted, 50), st)
	st = RecordResult(result(6, model.OrderDesc, model.OutcomeCompleted, 55), st)
	assert.Equal(t, 50.0, st.BestTimes["6-DESC"])

	st = RecordResult(result(6, model.OrderDesc, model.OutcomeCompleted, 50), st)
	assert.Equal(t, 50.0, st.BestTimes["6-DESC"])

	st = RecordResult(result(6, model.OrderDesc, model.OutcomeCompleted, 48.2), st)
	assert.Equal(t, 48.2, st.BestTimes["6-DESC"])
	_, ok := st.BestTimes["6-ASC"]
	assert.False(t, ok)
}

func TestRecordResultIgnoresFailedTimes(t *testing.T) {
	st := RecordResult(result(5, model.OrderAsc, model.OutcomeCompleted, 60), model.NewStats())
	st = RecordResult(result(5, model.OrderAsc, model.OutcomeAbandoned, 3), st)
	st = RecordResult(result(5, model.OrderAsc, model.OutcomeTimedOut, 30), st)
	assert.Equal(t, 60.0, st.BestTimes["5-ASC"])
	assert.Equal(t, 3, st.TotalSessions)
	assert.Len(t, st.History, 3)
}

func TestStreakResets(t *testing.T) {
	for _, outcome := range []model.Outcome{model.OutcomeTimedOut, model.OutcomeAbandoned} {
		st := model.NewStats()
		for i := 0; i < 7; i++ {
			st = RecordResult(result(5, model.OrderAsc, model.OutcomeCompleted, 40), st)
		}
		require.Equal(t, 7, st.CurrentStreak)
		st = RecordResult(result(5, model.OrderAsc, outcome, 40), st)
		assert.Equal(t, 0, st.CurrentStreak, "outcome %s", outcome)
		assert.Equal(t, 8, st.TotalSessions)
	}
}

func TestBestTimeIsMinimumOfCompletions(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	outcomes := []model.Outcome{model.OutcomeCompleted, model.OutcomeTimedOut, model.OutcomeAbandoned}
	st := model.NewStats()
	minimum := math.Inf(1)
	prevBest := math.Inf(1)
	for i := 0; i < 500; i++ {
		outcome := outcomes[rnd.Intn(len(outcomes))]
		elapsed := 10 + rnd.Float64()*100
		st = RecordResult(result(7, model.OrderAsc, outcome, elapsed), st)
		if outcome == model.OutcomeCompleted {
			minimum = math.Min(minimum, elapsed)
		}
		best, ok := st.BestTimes["7-ASC"]
		if math.IsInf(minimum, 1) {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)
		assert.Equal(t, minimum, best)
		assert.LessOrEqual(t, best, prevBest)
		prevBest = best
	}
}

func TestRecordResultIsDeterministic(t *testing.T) {
	prior := RecordResult(result(5, model.OrderAsc, model.OutcomeCompleted, 40), model.NewStats())
	r := result(5, model.OrderAsc, model.OutcomeCompleted, 35)
	assert.Equal(t, RecordResult(r, prior), RecordResult(r, prior))
}

func TestSanitizeRepairsMalformedStats(t *testing.T) {
	loaded := model.Stats{
		TotalSessions: -4,
		CurrentStreak: -1,
		BestTimes: map[string]float64{
			"5-ASC":   30,
			"9-ASC":   10,
			"garbage": 12,
			"6-DESC":  math.NaN(),
			"7-ASC":   -2,
		},
		History: []model.SessionResult{
			{ID: "a", Config: model.GridConfig{Size: 5, MaxTimeSeconds: 60, Order: model.OrderAsc}, Outcome: model.OutcomeCompleted, ElapsedSeconds: 25},
			{ID: "b", Config: model.GridConfig{Size: 5, MaxTimeSeconds: 60, Order: model.OrderAsc}, Outcome: "exploded", ElapsedSeconds: 5},
			{ID: "c", Config: model.GridConfig{Size: 2, MaxTimeSeconds: 60, Order: model.OrderAsc}, Outcome: model.OutcomeCompleted, ElapsedSeconds: 1},
		},
	}
	st, repairs := Sanitize(loaded)

	assert.NotEmpty(t, repairs)
	assert.Equal(t, 1, st.TotalSessions)
	assert.Equal(t, 0, st.CurrentStreak)
	assert.Equal(t, map[string]float64{"5-ASC": 25}, st.BestTimes)
	require.Len(t, st.History, 1)
	assert.Equal(t, "a", st.History[0].ID)
}

func TestSanitizeLeavesValidStatsAlone(t *testing.T) {
	st := RecordResult(result(5, model.OrderAsc, model.OutcomeCompleted, 40), model.NewStats())
	st = RecordResult(result(6, model.OrderDesc, model.OutcomeTimedOut, 120), st)

	clean, repairs := Sanitize(st)
	assert.Empty(t, repairs)
	assert.Equal(t, st.TotalSessions, clean.TotalSessions)
	assert.Equal(t, st.CurrentStreak, clean.CurrentStreak)
	assert.Equal(t, st.BestTimes, clean.BestTimes)
	assert.Equal(t, st.History, clean.History)
}

func TestSanitizeEmpty(t *testing.T) {
	st, repairs := Sanitize(model.Stats{})
	assert.Empty(t, repairs)
	assert.NotNil(t, st.BestTimes)
	assert.NotNil(t, st.History)
	assert.Equal(t, 0, st.TotalSessions)
}
