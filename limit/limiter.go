// Package limit gates castings with a per-user quota over a reset window.
package limit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	oracle "github.com/oraclelang/oracle"
)

// Store persists usage windows. Update must run fn and persist its result
// atomically with respect to other Update calls for the same user.
type Store interface {
	// Update loads the user's window (ok is false if none exists), passes it
	// to fn and stores what fn returns. An error from fn aborts the update.
	Update(ctx context.Context, user string, fn func(w oracle.UsageWindow, ok bool) (oracle.UsageWindow, error)) (oracle.UsageWindow, error)
	Get(ctx context.Context, user string) (oracle.UsageWindow, bool, error)
	List(ctx context.Context) ([]oracle.UsageWindow, error)
}

// Limiter is the quota gate. Safe for concurrent use when its Store is.
type Limiter struct {
	store  Store
	policy Policy
	max    int
	logger *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(lm *Limiter) { lm.logger = l }
}

// New creates a Limiter allowing max castings per window.
func New(store Store, policy Policy, max int, opts ...Option) *Limiter {
	l := &Limiter{store: store, policy: policy, max: max, logger: nopLogger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ oracle.Limiter = (*Limiter)(nil)

// Limit returns the default per-window maximum.
func (l *Limiter) Limit() int { return l.max }

// Policy returns the window policy.
func (l *Limiter) Policy() Policy { return l.policy }

// CheckAndConsume decides one request and, if allowed, counts it. The
// check and the increment happen in one Store.Update, so concurrent calls
// for a user never admit more than the quota.
func (l *Limiter) CheckAndConsume(ctx context.Context, user string, now time.Time) (oracle.Decision, error) {
	var dec oracle.Decision
	_, err := l.store.Update(ctx, user, func(w oracle.UsageWindow, ok bool) (oracle.UsageWindow, error) {
		var next oracle.UsageWindow
		next, dec = consume(w, ok, user, now, l.policy, l.max)
		return next, nil
	})
	if err != nil {
		l.logger.Error("limit: update failed", "user", user, "error", err)
		return oracle.Decision{}, fmt.Errorf("consume quota for %s: %w", user, err)
	}
	l.logger.Debug("limit: decision", "user", user, "allowed", dec.Allowed, "count", dec.Window.Count, "limit", dec.Limit)
	return dec, nil
}

// consume is the quota rule: open a fresh window when none exists or the
// stored one has ended, then admit while count < limit.
func consume(w oracle.UsageWindow, ok bool, user string, now time.Time, policy Policy, max int) (oracle.UsageWindow, oracle.Decision) {
	w = current(w, ok, user, now, policy)
	limit := effectiveLimit(w, max)
	if w.Count < limit {
		w.Count++
		return w, oracle.Decision{Allowed: true, Limit: limit, Remaining: limit - w.Count, Window: w}
	}
	return w, oracle.Decision{Allowed: false, Limit: limit, RetryAfter: w.End.Sub(now), Window: w}
}

// current returns w, or a fresh window at now if w is missing or over. A
// per-user quota override survives the rollover.
func current(w oracle.UsageWindow, ok bool, user string, now time.Time, policy Policy) oracle.UsageWindow {
	if ok && !w.Elapsed(now) {
		return w
	}
	start, end := policy.Window(now)
	return oracle.UsageWindow{User: user, Start: start, End: end, Quota: w.Quota}
}

func effectiveLimit(w oracle.UsageWindow, max int) int {
	if w.Quota > 0 {
		return w.Quota
	}
	return max
}

// Remaining reports how many castings user has left at now.
func (l *Limiter) Remaining(ctx context.Context, user string, now time.Time) (int, error) {
	w, ok, err := l.store.Get(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("get usage for %s: %w", user, err)
	}
	w = current(w, ok, user, now, l.policy)
	return max(0, effectiveLimit(w, l.max)-w.Count), nil
}

// ResetUser sets the user's count in the current window to zero.
func (l *Limiter) ResetUser(ctx context.Context, user string, now time.Time) error {
	_, err := l.store.Update(ctx, user, func(w oracle.UsageWindow, ok bool) (oracle.UsageWindow, error) {
		w = current(w, ok, user, now, l.policy)
		w.Count = 0
		return w, nil
	})
	if err != nil {
		return fmt.Errorf("reset usage for %s: %w", user, err)
	}
	l.logger.Info("limit: usage reset", "user", user)
	return nil
}

// SetUserQuota overrides the per-window maximum for user. Zero restores
// the default; negative values are rejected.
func (l *Limiter) SetUserQuota(ctx context.Context, user string, quota int, now time.Time) error {
	if quota < 0 {
		return fmt.Errorf("quota %d: %w", quota, oracle.ErrInvalidInput)
	}
	_, err := l.store.Update(ctx, user, func(w oracle.UsageWindow, ok bool) (oracle.UsageWindow, error) {
		w = current(w, ok, user, now, l.policy)
		w.Quota = quota
		return w, nil
	})
	if err != nil {
		return fmt.Errorf("set quota for %s: %w", user, err)
	}
	l.logger.Info("limit: quota set", "user", user, "quota", quota)
	return nil
}

// Stats summarises all stored counters. Only windows still open at now
// count towards active users and usage.
func (l *Limiter) Stats(ctx context.Context, now time.Time) (oracle.UsageStats, error) {
	windows, err := l.store.List(ctx)
	if err != nil {
		return oracle.UsageStats{}, fmt.Errorf("list usage: %w", err)
	}
	stats := oracle.UsageStats{Users: len(windows)}
	for _, w := range windows {
		if w.Elapsed(now) || w.Count == 0 {
			continue
		}
		stats.ActiveUsers++
		stats.TotalUsage += w.Count
	}
	return stats, nil
}

// NextReset is when a window opened at now would end.
func (l *Limiter) NextReset(now time.Time) time.Time {
	_, end := l.policy.Window(now)
	return end
}
