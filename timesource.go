package meter

import "time"

// TimeSource is the only time abstraction the Meter ever reads; it never
// reads wall-clock time directly. NowNanos must be monotonic: a value from a
// later call must never be less than one from an earlier call on the same
// TimeSource.
type TimeSource interface {
	NowNanos() int64
}

// systemTimeSource is the zero-dependency default: Go's time.Since
// preserves the monotonic reading time.Time carries, so repeated calls
// never go backwards even across NTP adjustments.
type systemTimeSource struct {
	start time.Time
}

// NewSystemTimeSource returns the default production TimeSource.
func NewSystemTimeSource() TimeSource {
	return &systemTimeSource{start: time.Now()}
}

func (s *systemTimeSource) NowNanos() int64 {
	return int64(time.Since(s.start))
}
