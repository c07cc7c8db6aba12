package scoring

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MikeSquared-Agency/drivescore/internal/session"
)

var testNow = time.Date(2025, 4, 12, 18, 0, 0, 0, time.UTC)

func newTestAggregator() *Aggregator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAggregator(DefaultPercentileTable, logger, func() time.Time { return testNow })
}

func drive(score int, duration float64, age time.Duration) session.DrivingSession {
	return session.DrivingSession{
		Date:     testNow.Add(-age),
		Score:    score,
		Duration: duration,
	}
}

func TestRecompute_SingleSession(t *testing.T) {
	a := newTestAggregator()
	if !a.Recompute([]session.DrivingSession{drive(85, 1800, 0)}) {
		t.Fatal("expected recompute to report a change")
	}
	st := a.State()
	if st.AllTimeScore != 85 {
		t.Errorf("expected all-time 85, got %d", st.AllTimeScore)
	}
	if st.RecentScore != 85 {
		t.Errorf("expected recent 85, got %d", st.RecentScore)
	}
	if st.PercentileRank != 95 {
		t.Errorf("expected percentile 95, got %d", st.PercentileRank)
	}
}

func TestRecompute_EmptyEligibleKeepsState(t *testing.T) {
	a := newTestAggregator()
	a.Recompute([]session.DrivingSession{drive(70, 1800, time.Hour)})
	before := a.State()

	if a.Recompute(nil) {
		t.Error("expected no change for empty history")
	}
	if a.Recompute([]session.DrivingSession{drive(10, 59, 0)}) {
		t.Error("expected no change when every session is under a minute")
	}
	if diff := cmp.Diff(before, a.State()); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
}

func TestRecompute_InitialStateUntouchedWhenEmpty(t *testing.T) {
	a := newTestAggregator()
	a.Restore(42)
	a.Recompute(nil)
	if got := a.State().AllTimeScore; got != 42 {
		t.Errorf("expected restored score 42, got %d", got)
	}
}

func TestRecompute_WeightsRecentAndLongDrives(t *testing.T) {
	a := newTestAggregator()
	history := []session.DrivingSession{
		drive(100, 3600, 0),              // weight 1.0
		drive(40, 3600, 15*24*time.Hour), // weight 0.5
	}
	a.Recompute(history)

	// (100*1 + 40*0.5) / 1.5 = 80
	if got := a.State().AllTimeScore; got != 80 {
		t.Errorf("expected 80, got %d", got)
	}
	// Unweighted mean of both.
	if got := a.State().RecentScore; got != 70 {
		t.Errorf("expected recent 70, got %d", got)
	}
}

func TestRecompute_ExpiredSessionsKeepAllTime(t *testing.T) {
	a := newTestAggregator()
	a.Restore(60)
	a.Recompute([]session.DrivingSession{drive(100, 3600, 45*24*time.Hour)})

	st := a.State()
	if st.AllTimeScore != 60 {
		t.Errorf("expected all-time to stay 60 with zero total weight, got %d", st.AllTimeScore)
	}
	if st.RecentScore != 100 {
		t.Errorf("expected recent 100, got %d", st.RecentScore)
	}
}

func TestRecompute_RecentUsesLastFiveByDate(t *testing.T) {
	a := newTestAggregator()
	// Deliberately unsorted.
	history := []session.DrivingSession{
		drive(90, 600, 1*time.Hour),
		drive(10, 600, 10*time.Hour),
		drive(80, 600, 2*time.Hour),
		drive(70, 600, 3*time.Hour),
		drive(60, 600, 4*time.Hour),
		drive(51, 600, 5*time.Hour),
	}
	a.Recompute(history)

	// Last five: 51, 60, 70, 80, 90 -> 351/5 = 70.2 -> 70
	if got := a.State().RecentScore; got != 70 {
		t.Errorf("expected recent 70, got %d", got)
	}
	if history[0].Score != 90 || history[1].Score != 10 {
		t.Error("Recompute must not reorder the caller's history")
	}
}

func TestRecompute_BreakdownFromMostRecent(t *testing.T) {
	a := newTestAggregator()
	latest := drive(81, 1800, time.Hour)
	latest.HardBrakingCount = 3
	latest.SpeedingDuration = 125
	latest.AverageSpeed = 42.5
	latest.MaxSpeed = 65

	a.Recompute([]session.DrivingSession{drive(92, 3600, 48*time.Hour), latest})

	want := []BreakdownItem{
		{Name: "Base", Value: 100, IsPositive: true},
		{Name: "Hard Braking", Value: 15, IsPositive: false},
		{Name: "Speeding", Value: 4, IsPositive: false},
		{Name: "Consistency Bonus", Value: 7, IsPositive: true},
	}
	if diff := cmp.Diff(want, a.State().Breakdown); diff != "" {
		t.Errorf("breakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestBreakdown_ZeroMaxSpeed(t *testing.T) {
	items := Breakdown(session.DrivingSession{AverageSpeed: 0, MaxSpeed: 0})
	if items[3].Value != 0 {
		t.Errorf("expected zero consistency bonus, got %d", items[3].Value)
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	a := newTestAggregator()
	history := []session.DrivingSession{
		drive(85, 1800, 24*time.Hour),
		drive(70, 2400, 48*time.Hour),
		drive(92, 3600, 96*time.Hour),
	}
	a.Recompute(history)
	first := a.State()
	a.Recompute(history)
	second := a.State()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("recompute not idempotent (-first +second):\n%s", diff)
	}
}

func TestAddScore_ManualOverrideClearedByRecompute(t *testing.T) {
	a := newTestAggregator()
	history := []session.DrivingSession{drive(80, 3600, 0)}
	a.Recompute(history)

	st := a.AddScore(-5)
	if st.AllTimeScore != 75 {
		t.Errorf("expected 75 after adjustment, got %d", st.AllTimeScore)
	}
	if st.ManualAdjustment != -5 {
		t.Errorf("expected adjustment -5, got %d", st.ManualAdjustment)
	}
	a.AddScore(-5)
	if got := a.State().AllTimeScore; got != 70 {
		t.Errorf("expected adjustments to accumulate to 70, got %d", got)
	}

	a.Recompute(history)
	st = a.State()
	if st.AllTimeScore != 80 || st.ManualAdjustment != 0 {
		t.Errorf("expected override cleared, got all-time %d adjustment %d", st.AllTimeScore, st.ManualAdjustment)
	}
}

func TestAddScore_Clamped(t *testing.T) {
	a := newTestAggregator()
	a.Restore(95)
	if got := a.AddScore(20).AllTimeScore; got != 100 {
		t.Errorf("expected clamp at 100, got %d", got)
	}
	if got := a.AddScore(-500).AllTimeScore; got != 0 {
		t.Errorf("expected clamp at 0, got %d", got)
	}
}

func TestAddScore_UpdatesPercentile(t *testing.T) {
	a := newTestAggregator()
	a.Restore(50)
	if got := a.State().PercentileRank; got != 60 {
		t.Fatalf("expected percentile 60, got %d", got)
	}
	if got := a.AddScore(25).PercentileRank; got != 90 {
		t.Errorf("expected percentile 90 at 75, got %d", got)
	}
}

func TestState_ReturnsCopy(t *testing.T) {
	a := newTestAggregator()
	a.Recompute([]session.DrivingSession{drive(85, 1800, 0)})
	st := a.State()
	st.Breakdown[0].Value = -1
	if a.State().Breakdown[0].Value != 100 {
		t.Error("State must not expose internal breakdown slice")
	}
}
