package util

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Timer is a passive expiry tracker driven by an injected clock.
//
// Unlike time.Timer it does not fire; callers poll Expired() on their own
// tick. The clock is injectable so that tests can use a mock clock.
type Timer struct {
	clk       clock.Clock
	duration  time.Duration
	expiresAt time.Time
}

func NewTimer(duration time.Duration, clk clock.Clock) *Timer {
	timer := &Timer{
		clk,
		duration,
		clk.Now(), // temp value
	}
	timer.Restart()
	return timer
}

// Restart the timer with the given duration.
func (t *Timer) RestartWithDuration(duration time.Duration) {
	t.duration = duration
	t.Restart()
}

// Restart the timer with the current duration.
func (t *Timer) Restart() {
	t.expiresAt = t.clk.Now().Add(t.duration)
}

// Check if the timer duration has expired.
func (t *Timer) Expired() bool {
	return t.clk.Now().After(t.expiresAt)
}

// Get the current timer duration.
func (t *Timer) GetCurrentDuration() time.Duration {
	return t.duration
}

// Get the time at which the timer expires.
func (t *Timer) GetExpiryTime() time.Time {
	return t.expiresAt
}
