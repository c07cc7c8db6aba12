package session

import (
	"time"

	"github.com/google/uuid"
)

// Location is a lat/lon pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DrivingSession is a finalized drive. Field names in the JSON encoding are
// stable; persisted histories depend on them.
type DrivingSession struct {
	ID               uuid.UUID `json:"id"`
	Date             time.Time `json:"date"`
	Score            int       `json:"score"`
	Duration         float64   `json:"duration"`     // seconds
	AverageSpeed     float64   `json:"averageSpeed"` // mph
	MaxSpeed         float64   `json:"maxSpeed"`     // mph
	HardBrakingCount int       `json:"hardBrakingCount"`
	SpeedingDuration float64   `json:"speedingDuration"` // seconds
	Distance         float64   `json:"distance"`         // miles
	StartLocation    *Location `json:"startLocation,omitempty"`
	EndLocation      *Location `json:"endLocation,omitempty"`
}

// DiscardReason explains why a finished session was not kept.
type DiscardReason string

const (
	Kept            DiscardReason = ""
	DiscardTooShort DiscardReason = "too_short"
)

// Result is the outcome of ending a session.
type Result struct {
	Session DrivingSession `json:"session"`
	Kept    bool           `json:"kept"`
	Reason  DiscardReason  `json:"reason,omitempty"`
}
