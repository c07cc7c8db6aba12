package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/drivescore/internal/scoring"
	"github.com/MikeSquared-Agency/drivescore/internal/session"
)

// Inbound subjects.
const (
	SubjectSpeedSample    = "drivescore.sample.speed"
	SubjectLocationSample = "drivescore.sample.location"
	SubjectSpeedLimit     = "drivescore.speedlimit"
)

// Published subjects.
const (
	SubjectBrakingDetected  = "drivescore.braking.detected"
	SubjectSessionCompleted = "drivescore.session.completed"
	SubjectSessionDiscarded = "drivescore.session.discarded"
	SubjectScoreUpdated     = "drivescore.score.updated"
)

// SpeedSampleEvent is a GPS speed reading. Timestamp is unix seconds.
type SpeedSampleEvent struct {
	Speed     float64 `json:"speed_mps"`
	Timestamp float64 `json:"timestamp"`
}

type LocationSampleEvent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp float64 `json:"timestamp"`
}

// SpeedLimitEvent carries the limit for the current road segment. Unit is
// "mph" or "km/h"; a non-positive speed clears the limit.
type SpeedLimitEvent struct {
	Speed float64 `json:"speed"`
	Unit  string  `json:"unit"`
}

type BrakingDetectedEvent struct {
	Timestamp        float64 `json:"timestamp"`
	DecelerationRate float64 `json:"deceleration_rate"`
	SessionActive    bool    `json:"session_active"`
}

type SessionCompletedEvent struct {
	Session     session.DrivingSession `json:"session"`
	Duration    string                 `json:"duration"`
	CompletedAt time.Time              `json:"completed_at"`
}

type SessionDiscardedEvent struct {
	Reason   session.DiscardReason `json:"reason"`
	Duration float64               `json:"duration"`
}

type ScoreUpdatedEvent struct {
	State  scoring.State `json:"state"`
	Rating string        `json:"rating"`
}
