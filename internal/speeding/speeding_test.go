package speeding

import (
	"math"
	"testing"
)

func TestLimitMPH(t *testing.T) {
	tests := []struct {
		name  string
		limit Limit
		want  float64
	}{
		{"mph passthrough", Limit{Speed: 35, Unit: "mph"}, 35},
		{"50 km/h rounds to 30", Limit{Speed: 50, Unit: "km/h"}, 30},
		{"100 km/h rounds to 60", Limit{Speed: 100, Unit: "km/h"}, 60},
		{"unit is case insensitive", Limit{Speed: 80, Unit: "KM/H"}, 50},
		{"kph alias", Limit{Speed: 30, Unit: "kph"}, 20},
		{"unknown unit treated as mph", Limit{Speed: 45, Unit: ""}, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.limit.MPH(); got != tt.want {
				t.Errorf("MPH() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestLimitString(t *testing.T) {
	if got := (Limit{Speed: 100, Unit: "km/h"}).String(); got != "60 mph" {
		t.Errorf("String() = %q", got)
	}
}

func TestTracker_NoLimitNeverSpeeding(t *testing.T) {
	tr := NewTracker()
	total := 0.0
	for i := 0; i < 10; i++ {
		total += tr.Observe(120, float64(i))
	}
	if total != 0 {
		t.Fatalf("expected no speeding without a limit, got %f", total)
	}
}

func TestTracker_AccumulatesOverLimit(t *testing.T) {
	tr := NewTracker()
	tr.SetLimit(Limit{Speed: 30, Unit: "mph"})

	samples := []struct {
		mph, ts float64
	}{
		{25, 0},  // under
		{35, 2},  // over from here
		{40, 5},  // +3s
		{28, 6},  // +1s, under from here
		{29, 10}, // +0
		{31, 11}, // +0, over from here
		{31, 11.5},
	}
	total := 0.0
	for _, s := range samples {
		total += tr.Observe(s.mph, s.ts)
	}
	if math.Abs(total-4.5) > 1e-9 {
		t.Fatalf("expected 4.5s speeding, got %f", total)
	}
}

func TestTracker_OutOfOrderIgnored(t *testing.T) {
	tr := NewTracker()
	tr.SetLimit(Limit{Speed: 30, Unit: "mph"})
	tr.Observe(50, 10)
	if got := tr.Observe(50, 5); got != 0 {
		t.Fatalf("out-of-order sample returned %f", got)
	}
	if got := tr.Observe(50, 12); got != 2 {
		t.Fatalf("expected 2s, got %f", got)
	}
}

func TestTracker_ClearLimit(t *testing.T) {
	tr := NewTracker()
	tr.SetLimit(Limit{Speed: 30, Unit: "mph"})
	if _, ok := tr.LimitMPH(); !ok {
		t.Fatal("expected limit set")
	}
	tr.SetLimit(Limit{})
	if _, ok := tr.LimitMPH(); ok {
		t.Fatal("expected limit cleared")
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	tr.SetLimit(Limit{Speed: 30, Unit: "mph"})
	tr.Observe(50, 0)
	tr.Reset()
	if got := tr.Observe(50, 100); got != 0 {
		t.Fatalf("first sample after reset returned %f", got)
	}
}
