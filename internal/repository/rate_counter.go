package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/eduportal-backend/internal/config"
)

// RateCounter counts requests per client in fixed windows shared by all
// server instances.
type RateCounter struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRateCounter creates a new RateCounter.
func NewRateCounter(rdb *redis.Client) *RateCounter {
	return &RateCounter{rdb: rdb, now: time.Now}
}

// Hit records one request and returns the count in the current window.
func (r *RateCounter) Hit(ctx context.Context, scope, client string, window time.Duration) (int64, error) {
	slot := r.now().UnixNano() / int64(window)
	key := config.CacheKey.RateLimitKey(scope, client, slot)

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
