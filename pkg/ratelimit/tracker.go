package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Response headers carrying the request budget.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// resetEpochThreshold separates X-RateLimit-Reset values sent as a unix
// timestamp from values sent as seconds until reset.
const resetEpochThreshold = 1_000_000_000

// DefaultThrottleDelay is how long a request waits while the budget is in
// the warning range.
const DefaultThrottleDelay = 1 * time.Second

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "postpager_ratelimit_remaining",
		Help: "Requests remaining in the current API rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpager_ratelimit_blocks_total",
		Help: "Total number of requests blocked due to a critical rate limit budget",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpager_ratelimit_throttles_total",
		Help: "Total number of requests throttled due to a low rate limit budget",
	})
)

// Tracker monitors the API request budget and gates requests.
type Tracker struct {
	store  Store
	logger zerolog.Logger

	// ThrottleDelay is the wait applied in the warning range.
	ThrottleDelay time.Duration
}

// NewTracker creates a new rate limit tracker. A nil store keeps the state
// in memory.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:         store,
		logger:        logger,
		ThrottleDelay: DefaultThrottleDelay,
	}
}

// GetState returns the last known state, or a healthy default when no
// response has been seen yet.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	state, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rate limit state: %w", err)
	}

	if state == nil {
		t.logger.Debug().Msg("No rate limit state stored, returning default healthy state")
		return &RateLimitState{
			Remaining:  100,
			ResetAt:    time.Now().Add(60 * time.Second),
			LastUpdate: time.Now(),
			IsHealthy:  true,
		}, nil
	}

	return state, nil
}

// UpdateFromHeaders parses the rate limit headers of a response and stores
// the new state. Responses without X-RateLimit-Remaining are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}

	reset, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	limit := 0
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}

	now := time.Now()
	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    resetTime(now, reset),
		LastUpdate: now,
	}
	state.UpdateHealth()

	if err := t.store.Save(ctx, state); err != nil {
		return err
	}

	rateLimitRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("Rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may be sent now.
// In the warning range it waits ThrottleDelay first, returning early with
// the context error if ctx is done.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.WindowExpired() {
		return true, nil
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Rate limit critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Rate limit warning - throttling request")

		rateLimitThrottlesTotal.Inc()

		timer := time.NewTimer(t.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}

func resetTime(now time.Time, reset int64) time.Time {
	if reset >= resetEpochThreshold {
		return time.Unix(reset, 0)
	}
	return now.Add(time.Duration(reset) * time.Second)
}
