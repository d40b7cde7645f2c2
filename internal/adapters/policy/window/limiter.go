// Package window provides a per-user sliding-window admission policy.
//
// Each user owns a list of admission timestamps inside the trailing window.
// All reads and writes, including the periodic sweep that drops idle users,
// go through one mutex, so a sweep can never delete a window that a
// concurrent admission is repopulating.
package window

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
)

// Defaults: 5 admissions per rolling minute, swept every 5 minutes.
const (
	DefaultLimit         = 5
	DefaultWindow        = 60 * time.Second
	DefaultSweepInterval = 5 * time.Minute
)

// Option configures a Limiter.
type Option func(*Limiter)

// WithLimit sets admissions allowed per window.
func WithLimit(n int) Option {
	return func(l *Limiter) {
		l.limit = n
	}
}

// WithWindow sets the window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		l.window = d
	}
}

// WithSweepInterval sets how often Run sweeps idle users.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) {
		l.sweepInterval = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// Limiter implements ports.AdmissionPolicy.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	limit         int
	window        time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// New creates a Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows:       make(map[string][]time.Time),
		limit:         DefaultLimit,
		window:        DefaultWindow,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.limit < 1 {
		l.limit = 1
	}
	if l.window <= 0 {
		l.window = DefaultWindow
	}
	if l.sweepInterval <= 0 {
		l.sweepInterval = DefaultSweepInterval
	}
	return l
}

// TryAdmit records an admission for userID if the budget allows it.
// An empty userID is always admitted and never tracked.
func (l *Limiter) TryAdmit(userID string) bool {
	allowed, _, _ := l.admit(userID)
	return allowed
}

// CheckRequest is TryAdmit with budget details for response headers.
func (l *Limiter) CheckRequest(ctx context.Context, req *ports.PolicyRequest) (*ports.PolicyDecision, error) {
	if req.UserID == "" {
		return &ports.PolicyDecision{Allow: true, Reason: "unauthenticated callers are not metered"}, nil
	}

	allowed, remaining, resetAt := l.admit(req.UserID)
	info := &domain.RateLimitInfo{
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt.Unix(),
	}

	if allowed {
		return &ports.PolicyDecision{Allow: true, RateLimitInfo: info}, nil
	}

	retryAfter := int(math.Ceil(resetAt.Sub(l.now()).Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	l.logger.InfoContext(ctx, "admission rejected",
		slog.String("user_id", req.UserID),
		slog.String("operation", req.Operation),
		slog.Int("retry_after", retryAfter),
	)

	return &ports.PolicyDecision{
		Allow:         false,
		Reason:        fmt.Sprintf("limit of %d requests per %s reached", l.limit, l.window),
		RetryAfter:    retryAfter,
		RateLimitInfo: info,
	}, nil
}

// admit prunes, checks, and appends atomically. resetAt is when the
// oldest tracked admission leaves the window.
func (l *Limiter) admit(userID string) (allowed bool, remaining int, resetAt time.Time) {
	if userID == "" {
		return true, l.limit, time.Time{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamps := l.prune(l.windows[userID], now)

	if len(stamps) >= l.limit {
		l.windows[userID] = stamps
		return false, 0, stamps[0].Add(l.window)
	}

	stamps = append(stamps, now)
	l.windows[userID] = stamps
	return true, l.limit - len(stamps), stamps[0].Add(l.window)
}

// prune drops timestamps whose age has reached the window length.
func (l *Limiter) prune(stamps []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

// Sweep removes users whose windows are empty after pruning and returns
// how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for user, stamps := range l.windows {
		stamps = l.prune(stamps, now)
		if len(stamps) == 0 {
			delete(l.windows, user)
			removed++
			continue
		}
		l.windows[user] = stamps
	}
	return removed
}

// Run sweeps every sweep interval until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				l.logger.DebugContext(ctx, "admission sweep", slog.Int("removed", n), slog.Int("tracked", l.Tracked()))
			}
		}
	}
}

// Tracked returns the number of users with a window.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
