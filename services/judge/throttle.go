package judge

import (
	"context"
	"time"

	"github.com/instantcocoa/naxos/pkg/cache"
)

// Limiter gates judge API calls. Wait blocks until a call is permitted or
// the context is cancelled.
type Limiter interface {
	Wait(ctx context.Context) error
}

// RedisLimiter throttles judge calls across processes using the shared
// Redis rate limiter. Model APIs reject bursty batch traffic; evaluation
// runs fire one judge call per sample per metric, so the limit applies
// per backend name.
type RedisLimiter struct {
	limiter *cache.RateLimiter
	key     string
	retry   time.Duration
}

// NewRedisLimiter creates a limiter allowing limit calls per windowSecs
// for the named backend.
func NewRedisLimiter(client *cache.Client, backend string, limit, windowSecs int) *RedisLimiter {
	return &RedisLimiter{
		limiter: cache.NewRateLimiter(client, "judge", limit, windowSecs),
		key:     backend,
		retry:   250 * time.Millisecond,
	}
}

// Wait blocks until the limiter admits a call.
func (l *RedisLimiter) Wait(ctx context.Context) error {
	for {
		allowed, err := l.limiter.Allow(ctx, l.key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
