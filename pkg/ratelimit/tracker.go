package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skilly_rate_limit_remaining",
		Help: "Last X-RateLimit-Remaining value reported by the Skilly API",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skilly_rate_limit_blocks_total",
		Help: "Total number of requests held back by an active backoff window",
	})

	rateLimitBackoffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skilly_rate_limit_backoffs_total",
		Help: "Total number of backoff windows opened by server responses",
	})
)

// Tracker gates requests while the server asked the client to back off.
type Tracker struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new rate limit tracker.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Allow reports whether a request may be sent now. When it may not, the
// returned duration is the remaining backoff.
func (t *Tracker) Allow(ctx context.Context) (bool, time.Duration, error) {
	state, err := t.store.Load(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("get rate limit state: %w", err)
	}

	now := t.now()
	if state.Blocked(now) {
		wait := state.Wait(now)
		t.logger.Warn().
			Dur("wait", wait).
			Int("remaining", state.Remaining).
			Msg("Backoff active - holding request")
		rateLimitBlocksTotal.Inc()
		return false, wait, nil
	}
	return true, 0, nil
}

// Observe records the rate limit information carried by a response.
func (t *Tracker) Observe(ctx context.Context, statusCode int, headers http.Header) error {
	now := t.now()
	remaining := RemainingUnknown
	if v := headers.Get(HeaderRemaining); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
		}
		remaining = n
		rateLimitRemaining.Set(float64(n))
	}

	var blockedUntil time.Time
	switch {
	case statusCode == http.StatusTooManyRequests:
		wait, ok := parseRetryAfter(headers.Get(HeaderRetryAfter), now)
		if !ok {
			wait = DefaultRetryAfter
		}
		blockedUntil = now.Add(wait)
	case statusCode == http.StatusServiceUnavailable:
		if wait, ok := parseRetryAfter(headers.Get(HeaderRetryAfter), now); ok {
			blockedUntil = now.Add(wait)
		}
	case remaining == 0:
		if v := headers.Get(HeaderReset); v != "" {
			secs, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("parse %s header: %w", HeaderReset, err)
			}
			blockedUntil = now.Add(time.Duration(secs) * time.Second)
		}
	}

	if blockedUntil.IsZero() && remaining == RemainingUnknown {
		return nil
	}

	state := State{
		BlockedUntil: blockedUntil,
		Remaining:    remaining,
		LastUpdate:   now,
	}
	if err := t.store.Save(ctx, state); err != nil {
		return err
	}

	if state.Blocked(now) {
		rateLimitBackoffsTotal.Inc()
		t.logger.Warn().
			Int("status", statusCode).
			Time("blocked_until", blockedUntil).
			Msg("Skilly API asked for backoff")
	} else {
		t.logger.Debug().Int("remaining", remaining).Msg("Rate limit state updated")
	}
	return nil
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
