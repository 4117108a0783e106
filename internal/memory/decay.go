package memory

import (
	"math"
	"time"
)

const (
	// halfLifeDays controls the forgetting curve: a memory's effective
	// importance halves every 14 days.
	halfLifeDays = 14.0

	// decayFloor keeps old memories retrievable by explicit query even
	// after long decay.
	decayFloor = 0.1

	// deleteThreshold is the decayed importance below which consolidated
	// memories become eligible for cleanup.
	deleteThreshold = 1.0
)

// DecayedImportance applies the half-life forgetting curve to a stored
// importance. The stored value is never mutated; decay is a read-time
// view. createdAt is unix milliseconds.
func DecayedImportance(initial float64, createdAt int64, now time.Time) float64 {
	elapsed := now.Sub(time.UnixMilli(createdAt))
	if elapsed < 0 {
		elapsed = 0
	}
	days := elapsed.Hours() / 24
	decayed := initial * math.Pow(0.5, days/halfLifeDays)
	return math.Max(decayed, decayFloor)
}
