package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/response"
)

// HitCounter counts a client's requests in the current window.
type HitCounter interface {
	Hit(ctx context.Context, scope, client string, window time.Duration) (int64, error)
}

// RateLimiter limits requests per IP in fixed windows (e.g. 30 per minute).
type RateLimiter struct {
	counter  HitCounter
	scope    string
	rate     int           // Requests per window
	interval time.Duration // Window length
	log      zerolog.Logger
}

// NewRateLimiter creates a RateLimiter for one route scope.
func NewRateLimiter(counter HitCounter, scope string, rate int, interval time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		scope:    scope,
		rate:     rate,
		interval: interval,
		log:      log.With().Str("component", "rate_limiter").Str("scope", scope).Logger(),
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// A counter outage lets requests through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		hits, err := rl.counter.Hit(c.Request.Context(), rl.scope, ip, rl.interval)
		if err != nil {
			rl.log.Warn().Err(err).Str("ip", ip).Msg("Rate counter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.rate))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(int64(rl.rate)-hits, 0), 10))
		if hits > int64(rl.rate) {
			c.Header("Retry-After", strconv.Itoa(int(rl.interval.Seconds())))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
