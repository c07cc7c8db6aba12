package scoring

import "math"

const (
	thirtyDays = 30 * 24 * 3600.0
	oneHour    = 3600.0

	// MinEligibleDuration is the shortest session that counts toward scores.
	MinEligibleDuration = 60.0

	recentWindow = 5
)

// RecencyFactor falls linearly from 1 for a brand new session to 0 for one
// thirty days old or older. Future dates count as brand new.
func RecencyFactor(ageSeconds float64) float64 {
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	return 1 - math.Min(ageSeconds/thirtyDays, 1)
}

// DurationFactor saturates at one hour of driving.
func DurationFactor(durationSeconds float64) float64 {
	if durationSeconds < 0 {
		return 0
	}
	return math.Min(durationSeconds/oneHour, 1)
}

// Weight returns a session's contribution to the all-time score.
//
// Formula: recency x (0.5 + 0.5 x durationFactor)
// A short session still counts half as much as a long one of the same age.
func Weight(ageSeconds, durationSeconds float64) float64 {
	return RecencyFactor(ageSeconds) * (0.5 + 0.5*DurationFactor(durationSeconds))
}

// Rating buckets a score for display.
func Rating(score int) string {
	switch {
	case score < 40:
		return "poor"
	case score < 70:
		return "fair"
	default:
		return "good"
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
