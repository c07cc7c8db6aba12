package braking

import "math"

// MPS2MPH converts metres per second to miles per hour.
const MPS2MPH = 2.23694

const (
	DefaultThreshold = 0.7  // m/s^2
	DefaultCooldown  = 10.0 // seconds
	DefaultWindow    = 2.0  // seconds

	// minInterval floors the sample interval so near-simultaneous samples
	// cannot produce an unbounded rate.
	minInterval = 0.1
)

// Sample is a single speed reading. Timestamp is in unix seconds, Speed in m/s.
type Sample struct {
	Timestamp float64 `json:"timestamp"`
	Speed     float64 `json:"speed_mps"`
}

// Valid reports whether the sample carries a usable speed. Location providers
// report a negative speed when the reading is invalid.
func (s Sample) Valid() bool {
	return s.Speed >= 0 && !math.IsNaN(s.Speed) && !math.IsInf(s.Speed, 0) &&
		!math.IsNaN(s.Timestamp) && !math.IsInf(s.Timestamp, 0)
}

// Event is a detected hard-braking occurrence.
type Event struct {
	Timestamp float64 `json:"timestamp"`
	Rate      float64 `json:"deceleration_rate"`
}

// Detector turns a speed stream into hard-braking events. It only emits
// events; scoring happens elsewhere.
type Detector struct {
	Threshold float64
	Cooldown  float64
	Window    float64

	hasPrev   bool
	prevSpeed float64
	prevTime  float64

	hasEvent  bool
	lastEvent float64
}

// NewDetector creates a detector. Non-positive values fall back to the defaults.
func NewDetector(threshold, cooldown, window float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Detector{Threshold: threshold, Cooldown: cooldown, Window: window}
}

// OnSample feeds one sample to the detector and returns the event it
// produced, if any. Invalid and out-of-order samples are ignored and do not
// replace the previous sample.
func (d *Detector) OnSample(s Sample) (Event, bool) {
	if !s.Valid() {
		return Event{}, false
	}
	if !d.hasPrev {
		d.store(s)
		return Event{}, false
	}
	if s.Timestamp < d.prevTime {
		return Event{}, false
	}

	rate := Rate(d.prevSpeed, s.Speed, s.Timestamp-d.prevTime)
	d.store(s)

	if rate < d.Threshold {
		return Event{}, false
	}
	if d.hasEvent && s.Timestamp-d.lastEvent <= d.Cooldown {
		return Event{}, false
	}

	d.hasEvent = true
	d.lastEvent = s.Timestamp
	return Event{Timestamp: s.Timestamp, Rate: rate}, true
}

// BrakingNow reports whether the most recent event is younger than the window.
func (d *Detector) BrakingNow(now float64) bool {
	if !d.hasEvent {
		return false
	}
	age := now - d.lastEvent
	return age >= 0 && age < d.Window
}

// LastEvent returns the timestamp of the most recent event.
func (d *Detector) LastEvent() (float64, bool) {
	return d.lastEvent, d.hasEvent
}

// Reset forgets the previous sample and the cooldown.
func (d *Detector) Reset() {
	d.hasPrev = false
	d.prevSpeed = 0
	d.prevTime = 0
	d.hasEvent = false
	d.lastEvent = 0
}

func (d *Detector) store(s Sample) {
	d.hasPrev = true
	d.prevSpeed = s.Speed
	d.prevTime = s.Timestamp
}

// Rate returns the deceleration between two speeds dt seconds apart, positive
// when slowing down. dt is floored at 0.1s.
func Rate(prevSpeed, speed, dt float64) float64 {
	return (prevSpeed - speed) / math.Max(dt, minInterval)
}
