// Package ratelimit enforces a sliding-window request budget per identity.
//
// Identities are "user:{username}" or "ip:{addr}" strings. The window
// storage is pluggable: the in-memory store suits a single instance, the
// Redis store is shared across instances.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"sqlgate/internal/domain"
)

// DefaultWindow is the sliding window length.
const DefaultWindow = 60 * time.Second

// Store counts requests per identity within a sliding window. Hit must be
// an atomic increment-and-count: concurrent callers for the same identity
// observe a consistent total.
type Store interface {
	// Hit records one request for identity at now and returns the total
	// number of requests within (now-window, now], including this one, and
	// the time at which the oldest counted request leaves the window.
	//
	// Every attempt counts, including ones the caller then rejects as over
	// budget: a client that keeps submitting while limited keeps its window
	// full, and the retry-after horizon moves forward with each attempt.
	// The budget only drains when the client actually backs off.
	Hit(ctx context.Context, identity string, now time.Time, window time.Duration) (count int, oldest time.Time, err error)
}

// BudgetFunc resolves the request budget for a role.
type BudgetFunc func(role string) int

// Limiter applies a per-role sliding-window budget over a Store.
type Limiter struct {
	store  Store
	window time.Duration
	budget BudgetFunc
	logger *slog.Logger
}

// New creates a Limiter. A zero window defaults to DefaultWindow.
func New(store Store, window time.Duration, budget BudgetFunc, logger *slog.Logger) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, window: window, budget: budget, logger: logger}
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Allow records one request for the identity and checks it against the
// role's budget. On limit exceeded it returns a RateLimitError carrying the
// retry-after timestamp. A store failure fails open: the request is allowed
// and the failure logged, so a degraded shared store never blocks the
// gateway.
func (l *Limiter) Allow(ctx context.Context, identity, role string) error {
	now := time.Now()
	count, oldest, err := l.store.Hit(ctx, identity, now, l.window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, failing open",
			"identity", identity, "error", err)
		return nil
	}

	limit := l.budget(role)
	if count <= limit {
		return nil
	}

	retryAfter := oldest.Add(l.window)
	return domain.ErrRateLimit(retryAfter,
		"rate limit exceeded for %s: %d requests in %s (limit %d)",
		identity, count, l.window, limit)
}
