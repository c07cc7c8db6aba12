package scoring

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/drivescore/internal/session"
)

const floorEpsilon = 1e-9

// BreakdownItem is one line of the score explanation.
type BreakdownItem struct {
	Name       string `json:"name"`
	Value      int    `json:"value"`
	IsPositive bool   `json:"isPositive"`
}

// State is the derived score view.
type State struct {
	AllTimeScore     int             `json:"allTimeScore"`
	RecentScore      int             `json:"recentScore"`
	PercentileRank   int             `json:"percentileRank"`
	Breakdown        []BreakdownItem `json:"breakdown"`
	ManualAdjustment int             `json:"manualAdjustment"`
}

// Aggregator recomputes State from the session history. Manual adjustments
// via AddScore apply on top of the computed all-time score until the next
// Recompute clears them.
type Aggregator struct {
	table  PercentileTable
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	computed int
	state    State
}

func NewAggregator(table PercentileTable, logger *slog.Logger, now func() time.Time) *Aggregator {
	if len(table) == 0 {
		table = DefaultPercentileTable
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{table: table, logger: logger, now: now}
}

// Restore seeds the all-time score, typically from the persisted value.
func (a *Aggregator) Restore(score int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.computed = clamp(score)
	a.state.AllTimeScore = a.computed
	a.state.ManualAdjustment = 0
	a.state.PercentileRank = a.table.Rank(a.computed)
}

// Recompute rebuilds the state from history. Sessions shorter than a minute
// are ignored; if none remain the state is left as it was and false is
// returned. history is not modified.
func (a *Aggregator) Recompute(history []session.DrivingSession) bool {
	eligible := make([]session.DrivingSession, 0, len(history))
	for _, s := range history {
		if s.Duration >= MinEligibleDuration {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		a.logger.Debug("no eligible sessions, score unchanged", "history", len(history))
		return false
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Date.Before(eligible[j].Date) })

	now := a.now()
	var weighted, total float64
	for _, s := range eligible {
		w := Weight(now.Sub(s.Date).Seconds(), s.Duration)
		weighted += float64(s.Score) * w
		total += w
	}

	recent := eligible[max(0, len(eligible)-recentWindow):]
	var recentSum int
	for _, s := range recent {
		recentSum += s.Score
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if total > 0 {
		// The epsilon keeps a history of identical scores from flooring to
		// one below after float rounding.
		a.computed = int(math.Floor(weighted/total + floorEpsilon))
	}
	a.state = State{
		AllTimeScore:   a.computed,
		RecentScore:    recentSum / len(recent),
		PercentileRank: a.table.Rank(a.computed),
		Breakdown:      Breakdown(eligible[len(eligible)-1]),
	}

	a.logger.Info("score recomputed",
		"all_time", a.state.AllTimeScore,
		"recent", a.state.RecentScore,
		"percentile", a.state.PercentileRank,
		"eligible", len(eligible),
	)
	return true
}

// AddScore applies a manual adjustment to the all-time score. It is
// cleared by the next Recompute.
func (a *Aggregator) AddScore(points int) State {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.ManualAdjustment += points
	a.state.AllTimeScore = clamp(a.computed + a.state.ManualAdjustment)
	a.state.PercentileRank = a.table.Rank(a.state.AllTimeScore)
	return a.copyState()
}

// State returns a copy of the current state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyState()
}

func (a *Aggregator) copyState() State {
	s := a.state
	if a.state.Breakdown != nil {
		s.Breakdown = make([]BreakdownItem, len(a.state.Breakdown))
		copy(s.Breakdown, a.state.Breakdown)
	}
	return s
}

// Breakdown explains a single session's score.
func Breakdown(s session.DrivingSession) []BreakdownItem {
	speedingMinutes := int(math.Floor(s.SpeedingDuration / 60))
	consistency := int(math.Round(s.AverageSpeed / math.Max(s.MaxSpeed, 1) * 10))
	return []BreakdownItem{
		{Name: "Base", Value: 100, IsPositive: true},
		{Name: "Hard Braking", Value: s.HardBrakingCount * 5, IsPositive: false},
		{Name: "Speeding", Value: speedingMinutes * 2, IsPositive: false},
		{Name: "Consistency Bonus", Value: consistency, IsPositive: true},
	}
}
