package speeding

import (
	"fmt"
	"math"
	"strings"
)

const kmhToMph = 0.621371

// Limit is a posted speed limit as reported by a map provider.
type Limit struct {
	Speed float64 `json:"speed"`
	Unit  string  `json:"unit"`
}

// MPH returns the limit in miles per hour. Metric limits are rounded to the
// nearest 5 mph the way road signs are.
func (l Limit) MPH() float64 {
	if strings.EqualFold(l.Unit, "km/h") || strings.EqualFold(l.Unit, "kph") {
		return math.Round(l.Speed*kmhToMph/5) * 5
	}
	return l.Speed
}

func (l Limit) String() string {
	return fmt.Sprintf("%d mph", int(l.MPH()))
}
