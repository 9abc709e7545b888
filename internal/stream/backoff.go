package stream

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// reconnectDelays is the fixed reconnect ladder. The delay plateaus at the
// final entry and never grows past it.
var reconnectDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	30 * time.Second,
}

// Schedule walks the fixed reconnect ladder. It implements backoff.BackOff
// so the manager consumes it through the standard interface; unlike the
// library's exponential policy it never stops and never randomizes.
type Schedule struct {
	delays  []time.Duration
	attempt int
}

var _ backoff.BackOff = (*Schedule)(nil)

func NewSchedule() *Schedule {
	return &Schedule{delays: reconnectDelays}
}

// DelayFor returns the delay for the given zero-based attempt number,
// plateauing at the final ladder entry.
func (s *Schedule) DelayFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(s.delays) {
		attempt = len(s.delays) - 1
	}
	return s.delays[attempt]
}

// NextBackOff returns the current attempt's delay and advances the counter.
func (s *Schedule) NextBackOff() time.Duration {
	d := s.DelayFor(s.attempt)
	s.attempt++
	return d
}

// Reset rewinds the ladder to the first entry. Called on successful open
// and on explicit disconnect.
func (s *Schedule) Reset() {
	s.attempt = 0
}

// Attempt returns the number of delays handed out since the last reset.
func (s *Schedule) Attempt() int {
	return s.attempt
}
