package session

import "fmt"

// FormatDuration renders seconds as "N min" or "H hr M min".
func FormatDuration(seconds float64) string {
	minutes := int(seconds) / 60
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%d hr %d min", minutes/60, minutes%60)
}
