package config

import (
	"time"
)

// TimeSettings are the time parameters of a consensus node.
type TimeSettings struct {
	// Interval at which the node's internal tick fires.
	// Heartbeats are sent on this interval when the node is the leader,
	// so it must be strictly shorter than the election timeout floor.
	TickerDuration time.Duration

	// Election timeout low value - the randomized election timeout is
	// chosen from [ElectionTimeoutLow, 2*ElectionTimeoutLow).
	ElectionTimeoutLow time.Duration
}

// ValidateTimeSettings checks the values of a TimeSettings:
//
//	TickerDuration     must be greater than zero.
//	ElectionTimeoutLow must be greater than TickerDuration.
//
// Returns a non-empty description string if a check fails.
//
// These are just basic sanity checks and don't include the softer
// usefulness checks recommended by the consensus protocol.
func ValidateTimeSettings(timeSettings TimeSettings) string {
	if timeSettings.TickerDuration.Nanoseconds() <= 0 {
		return "TickerDuration must be greater than zero"
	}
	if timeSettings.ElectionTimeoutLow.Nanoseconds() <= timeSettings.TickerDuration.Nanoseconds() {
		return "ElectionTimeoutLow must be greater than TickerDuration"
	}

	return ""
}
