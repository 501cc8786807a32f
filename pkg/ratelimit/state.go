// Package ratelimit tracks the request budget advertised by the blog API
// through the X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset
// headers and gates outgoing requests before the budget runs out.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyLimit          = "postpager:rate_limit:limit"
	RedisKeyRemaining      = "postpager:rate_limit:remaining"
	RedisKeyResetTimestamp = "postpager:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "postpager:rate_limit:last_update"
)

// Thresholds for rate limit decisions.
const (
	// RemainingThresholdCritical blocks all requests when the remaining budget
	// falls below this value.
	RemainingThresholdCritical = 5

	// RemainingThresholdWarning throttles requests when the remaining budget
	// falls below this value.
	RemainingThresholdWarning = 20

	// RemainingThresholdHealthy indicates normal operation.
	RemainingThresholdHealthy = 50
)

// RateLimitState is the last known request budget.
type RateLimitState struct {
	// Limit is the window size from X-RateLimit-Limit (0 when not sent).
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was last refreshed from response headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= RemainingThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// WindowExpired returns true once ResetAt has passed; the budget advertised
// by the previous window no longer applies.
func (s *RateLimitState) WindowExpired() bool {
	return !s.ResetAt.IsZero() && time.Now().After(s.ResetAt)
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < RemainingThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < RemainingThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingThresholdHealthy
}
