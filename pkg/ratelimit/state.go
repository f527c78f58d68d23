// Package ratelimit implements client side backoff for the Skilly API.
// It watches the Retry-After, X-RateLimit-Remaining and X-RateLimit-Reset
// headers and holds requests back until the advertised window has passed.
package ratelimit

import (
	"time"
)

// Header names read by the tracker.
const (
	HeaderRetryAfter = "Retry-After"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
)

// Redis keys for shared backoff state.
const (
	RedisKeyBlockedUntil = "skilly:rate_limit:blocked_until"
	RedisKeyRemaining    = "skilly:rate_limit:remaining"
	RedisKeyLastUpdate   = "skilly:rate_limit:last_update"
)

// RemainingUnknown marks a state for which the server never reported a quota.
const RemainingUnknown = -1

// DefaultRetryAfter is used when the server answers 429 without Retry-After.
const DefaultRetryAfter = 5 * time.Second

// State is the current backoff state.
type State struct {
	// BlockedUntil is the instant before which no request should be sent.
	BlockedUntil time.Time `json:"blocked_until"`

	// Remaining is the last X-RateLimit-Remaining value, or RemainingUnknown.
	Remaining int `json:"remaining"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// Healthy returns the state of a client that has seen no throttling.
func Healthy() State {
	return State{Remaining: RemainingUnknown}
}

// Blocked reports whether requests must wait at the given instant.
func (s State) Blocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// Wait returns how long a request issued at now has to wait. 0 when not blocked.
func (s State) Wait(now time.Time) time.Duration {
	if !s.Blocked(now) {
		return 0
	}
	return s.BlockedUntil.Sub(now)
}

// IsStale returns true if the state data is older than the given duration.
func (s State) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}
