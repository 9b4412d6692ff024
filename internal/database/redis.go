package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/config"
)

const redisPingTimeout = 5 * time.Second

// NewRedisClient creates and validates a Redis client connection.
// Redis holds the paper cache, autosave buffers, student sessions and the
// monitor pub/sub channels.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	// The monitor keeps one pub/sub connection per watched exam on top of
	// the pool, and autosave workers block on BLPOP.
	opt.ClientName = "eduportal"
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = 2
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Int("pool_size", opt.PoolSize).
		Msg("Redis connected")

	return rdb, nil
}
