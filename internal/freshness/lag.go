package freshness

import (
	"time"

	"github.com/leapstack-labs/mzfresh/internal/catalog"
)

// DefaultStalenessThresholdMs is the per-object staleness flag threshold.
// It is independent of the report-level threshold_seconds.
const DefaultStalenessThresholdMs = 100.0

// LagMeasurement is the lag of one object at a given instant.
type LagMeasurement struct {
	Seconds float64
	Millis  float64
	Stale   bool
}

// Lag returns how far the frontier trails now. An object without a known
// frontier has lag 0. Negative values (clock skew) are returned unchanged.
func Lag(f catalog.Frontier, now time.Time) (seconds, millis float64) {
	if !f.Known() {
		return 0, 0
	}
	d := now.Sub(f.Time())
	return d.Seconds(), float64(d) / float64(time.Millisecond)
}

// IsStale classifies a lag against a threshold, both in milliseconds.
func IsStale(lagMs, thresholdMs float64) bool {
	return lagMs > thresholdMs
}

// Measure combines Lag and IsStale.
func Measure(f catalog.Frontier, now time.Time, thresholdMs float64) LagMeasurement {
	s, ms := Lag(f, now)
	return LagMeasurement{Seconds: s, Millis: ms, Stale: IsStale(ms, thresholdMs)}
}
