package speeding

// Tracker accumulates time spent above the current speed limit. Each
// interval between two consecutive samples counts as speeding when the
// earlier sample was over the limit.
type Tracker struct {
	limitMph float64
	hasLimit bool

	hasPrev  bool
	prevTime float64
	prevOver bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// SetLimit replaces the active limit. A non-positive limit clears it.
func (t *Tracker) SetLimit(l Limit) {
	mph := l.MPH()
	t.limitMph = mph
	t.hasLimit = mph > 0
}

// LimitMPH returns the active limit, if any.
func (t *Tracker) LimitMPH() (float64, bool) {
	return t.limitMph, t.hasLimit
}

// Observe records a speed sample (mph) and returns the seconds of speeding
// attributable to the interval that just ended.
func (t *Tracker) Observe(speedMph, ts float64) float64 {
	if t.hasPrev && ts < t.prevTime {
		return 0
	}

	var over float64
	if t.hasPrev && t.prevOver {
		over = ts - t.prevTime
	}

	t.hasPrev = true
	t.prevTime = ts
	t.prevOver = t.hasLimit && speedMph > t.limitMph
	return over
}

// Reset forgets the previous sample but keeps the limit.
func (t *Tracker) Reset() {
	t.hasPrev = false
	t.prevTime = 0
	t.prevOver = false
}
