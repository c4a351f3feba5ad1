// Package ratelimit counts requests per key in fixed Redis windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one counted request.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration // until the window closes
}

// Limiter allows up to limit requests per window for every key.
type Limiter struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

// New returns a limiter whose keys are namespaced by prefix.
func New(rdb redis.Cmdable, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

// Take counts one request for key. The window starts with the first request
// and is not extended by later ones.
func (l *Limiter) Take(ctx context.Context, key string) (Decision, error) {
	k := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("ratelimit incr: %w", err)
	}

	reset := ttl.Val()
	if reset < 0 {
		if err := l.rdb.PExpire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit expire: %w", err)
		}
		reset = l.window
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}
