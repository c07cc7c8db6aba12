package scoring

import (
	"math"
	"testing"
)

func TestRecencyFactor(t *testing.T) {
	tests := []struct {
		name string
		age  float64
		want float64
	}{
		{"brand new", 0, 1.0},
		{"fifteen days", 15 * 86400, 0.5},
		{"thirty days", 30 * 86400, 0.0},
		{"ninety days", 90 * 86400, 0.0},
		{"future date counts as new", -3600, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecencyFactor(tt.age)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("RecencyFactor(%f) = %f, want %f", tt.age, got, tt.want)
			}
		})
	}
}

func TestDurationFactor(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		want     float64
	}{
		{"zero", 0, 0},
		{"half hour", 1800, 0.5},
		{"one hour", 3600, 1.0},
		{"capped above one hour", 7200, 1.0},
		{"negative", -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DurationFactor(tt.duration)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("DurationFactor(%f) = %f, want %f", tt.duration, got, tt.want)
			}
		})
	}
}

func TestWeight(t *testing.T) {
	tests := []struct {
		name     string
		age      float64
		duration float64
		want     float64
	}{
		{"new one hour drive", 0, 3600, 1.0},
		{"new half hour drive", 0, 1800, 0.75},
		{"new five minute drive", 0, 300, 0.5 + 0.5*300.0/3600},
		{"fifteen days, one hour", 15 * 86400, 3600, 0.5},
		{"expired", 31 * 86400, 3600, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Weight(tt.age, tt.duration)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Weight(%f, %f) = %f, want %f", tt.age, tt.duration, got, tt.want)
			}
		})
	}
}

func TestRating(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "poor"},
		{39, "poor"},
		{40, "fair"},
		{69, "fair"},
		{70, "good"},
		{100, "good"},
	}
	for _, tt := range tests {
		if got := Rating(tt.score); got != tt.want {
			t.Errorf("Rating(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
