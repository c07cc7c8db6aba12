package session

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/drivescore/internal/geo"
)

const (
	maxScore               = 100
	hardBrakingPenalty     = 5
	speedingPenaltyPerMin  = 2
	speedingPenaltySeconds = 60
)

// Builder accumulates the metrics of one active drive.
type Builder struct {
	StartTime        time.Time
	Speeds           []float64 // mph
	HardBrakingCount int
	SpeedingDuration float64 // seconds
	StartLocation    *Location
	EndLocation      *Location
	Distance         float64 // miles
}

func NewBuilder(start time.Time) *Builder {
	return &Builder{StartTime: start}
}

func (b *Builder) UpdateSpeed(mph float64) {
	b.Speeds = append(b.Speeds, mph)
}

// UpdateLocation sets the start location on the first call and the end
// location on every call.
func (b *Builder) UpdateLocation(loc Location) {
	if b.StartLocation == nil {
		start := loc
		b.StartLocation = &start
	}
	if b.EndLocation != nil {
		b.Distance += geo.HaversineMiles(b.EndLocation.Latitude, b.EndLocation.Longitude, loc.Latitude, loc.Longitude)
	}
	end := loc
	b.EndLocation = &end
}

// Build finalizes the drive as of end.
func (b *Builder) Build(end time.Time) DrivingSession {
	avg, top := speedStats(b.Speeds)
	return DrivingSession{
		ID:               uuid.New(),
		Date:             b.StartTime,
		Score:            Score(b.HardBrakingCount, b.SpeedingDuration),
		Duration:         end.Sub(b.StartTime).Seconds(),
		AverageSpeed:     avg,
		MaxSpeed:         top,
		HardBrakingCount: b.HardBrakingCount,
		SpeedingDuration: b.SpeedingDuration,
		Distance:         b.Distance,
		StartLocation:    copyLocation(b.StartLocation),
		EndLocation:      copyLocation(b.EndLocation),
	}
}

// Score computes a session score from its penalties:
// 100 - 5 per hard brake - 2 per full minute of speeding, clamped to [0, 100].
func Score(hardBraking int, speedingSeconds float64) int {
	minutes := int(math.Floor(speedingSeconds / speedingPenaltySeconds))
	score := maxScore - hardBraking*hardBrakingPenalty - minutes*speedingPenaltyPerMin
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func speedStats(speeds []float64) (avg, top float64) {
	if len(speeds) == 0 {
		return 0, 0
	}
	var sum float64
	top = speeds[0]
	for _, s := range speeds {
		sum += s
		if s > top {
			top = s
		}
	}
	return sum / float64(len(speeds)), top
}

func copyLocation(l *Location) *Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
