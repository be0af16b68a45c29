package backoff

import (
	"math"
	"time"
)

// MaxWindow caps the per-entity backoff window.
const MaxWindow = 30 * time.Minute

// Window returns the minimum elapsed time required after a recorded error
// before an entity is eligible for reprocessing: min(30min, 2^errorCount
// seconds). A zero error count yields a 1s window.
func Window(errorCount int) time.Duration {
	if errorCount < 0 {
		errorCount = 0
	}
	// 2^11s already exceeds 30min, clamp before the shift overflows.
	if errorCount > 11 {
		return MaxWindow
	}
	d := time.Duration(math.Pow(2, float64(errorCount))) * time.Second
	if d > MaxWindow {
		return MaxWindow
	}
	return d
}

// Ready reports whether an entity with the given error state may be
// processed at now. An entity with no recorded error is always ready.
func Ready(lastErrorAt int64, errorCount int, now time.Time) bool {
	if lastErrorAt == 0 || errorCount == 0 {
		return true
	}
	elapsed := now.Sub(time.Unix(lastErrorAt, 0))
	return elapsed >= Window(errorCount)
}
