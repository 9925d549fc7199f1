package ranking

import (
	"fmt"
	"math"
)

// FormatElapsed renders an elapsed duration in seconds as "D day HH:MM:SS",
// the display format used in ranking responses. Negative inputs render as
// zero elapsed time.
func FormatElapsed(seconds float64) string {
	total := int64(seconds)
	if total < 0 {
		total = 0
	}
	days := total / 86400
	rem := total % 86400
	return fmt.Sprintf("%d day %02d:%02d:%02d", days, rem/3600, rem%3600/60, rem%60)
}

// Round3 rounds a score to 3 decimal places for display.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
