// Package clocksource provides a meter.TimeSource backed by
// github.com/facebookgo/clock. Its Mock implementation gives tests a
// controllable TimeSource that can be advanced by fixed increments, without
// the library core depending on any test-only code.
package clocksource

import (
	"time"

	"github.com/facebookgo/clock"

	"github.com/useful-toys/gometer"
)

// Source adapts a clock.Clock to meter.TimeSource.
type Source struct {
	clock clock.Clock
	start time.Time
}

var _ meter.TimeSource = (*Source)(nil)

// New wraps the real wall clock (clock.New()).
func New() *Source {
	c := clock.New()
	return &Source{clock: c, start: c.Now()}
}

// NewMock returns a Source backed by a clock.Mock, plus the Mock itself so
// the caller can Advance it deterministically between assertions.
func NewMock() (*Source, *clock.Mock) {
	m := clock.NewMock()
	return &Source{clock: m, start: m.Now()}, m
}

func (s *Source) NowNanos() int64 {
	return int64(s.clock.Now().Sub(s.start))
}
