package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hypnotize1/blog-api/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

var (
	limiters   = map[string]*rateLimiter{}
	limitersMu sync.Mutex
)

// RateLimit applies a per-IP request limit. With a Redis client it uses a
// shared fixed window counter (fail-open on Redis errors); without one it
// falls back to an in-process token bucket.
func RateLimit(rdb *redis.Client, perMinute int) gin.HandlerFunc {
	if perMinute < 1 {
		perMinute = 1
	}
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	burst := maxInt(perMinute/2, 1)

	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()

		allowed := true
		if rdb != nil {
			allowed = allowRedis(rdb, ip, perMinute)
		} else {
			allowed = getLimiter(ip, limit, burst).Allow()
		}

		if !allowed {
			utils.Error(ctx, http.StatusTooManyRequests, "rate limit exceeded")
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

// allowRedis counts requests in per-minute windows keyed by IP. Any Redis
// failure fails open so an unavailable Redis never takes down auth.
func allowRedis(rdb *redis.Client, ip string, perMinute int) bool {
	c, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	key := fmt.Sprintf("ratelimit:%s:%s", ip, time.Now().Format("200601021504"))
	n, err := rdb.Incr(c, key).Result()
	if err != nil {
		return true
	}
	if n == 1 {
		_ = rdb.Expire(c, key, 2*time.Minute).Err()
	}
	return n <= int64(perMinute)
}

func getLimiter(key string, limit rate.Limit, burst int) *rate.Limiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()

	now := time.Now()
	for k, l := range limiters {
		if now.After(l.expires) {
			delete(limiters, k)
		}
	}

	if l, ok := limiters[key]; ok {
		l.expires = now.Add(5 * time.Minute)
		return l.limiter
	}

	l := &rateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		expires: now.Add(5 * time.Minute),
	}
	limiters[key] = l
	return l.limiter
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
