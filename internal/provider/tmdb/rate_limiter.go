package tmdb

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestInterval keeps outbound traffic under the service budget of
// 40 requests per 10 seconds.
const DefaultRequestInterval = 300 * time.Millisecond

// rateLimiter spaces permitted calls at least interval apart. Slots are
// reserved when a caller arrives, so concurrent callers queue in arrival
// order and each one is released interval after the previous release.
type rateLimiter struct {
	limiter  *rate.Limiter
	interval time.Duration
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// newRateLimiter creates a new rate limiter
func newRateLimiter(interval time.Duration, logger *slog.Logger) *rateLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &rateLimiter{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// wait blocks until the caller may issue its request. It never rejects; the
// only error is the context's.
func (r *rateLimiter) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := r.now()
	reservation := r.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	r.logger.Debug("throttling tmdb request", slog.Duration("delay", delay))
	if err := r.sleep(ctx, delay); err != nil {
		reservation.CancelAt(r.now())
		return err
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
