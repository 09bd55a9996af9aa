package security

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per client in fixed one-minute Redis windows.
type RateLimiter struct {
	redis    *redis.Client
	limit    int
	window   time.Duration
	identify func(e *core.RequestEvent) string
}

func NewRateLimiter(redisClient *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{
		redis:    redisClient,
		limit:    perMinute,
		window:   time.Minute,
		identify: clientIP,
	}
}

// Limit returns a route middleware for the named bucket. A limit of zero or
// less disables it. Redis errors let the request through.
func (r *RateLimiter) Limit(bucket string) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if r.limit <= 0 {
			return e.Next()
		}

		ip := r.identify(e)
		key := fmt.Sprintf("ratelimit:%s:%s", bucket, ip)
		ctx := e.Request.Context()

		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			slog.Warn("r.redis.Incr()", "key", key, "error", err)
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(ctx, key, r.window)
		}
		if count > int64(r.limit) {
			slog.Info("rate limit exceeded", "bucket", bucket, "ip", ip, "count", count)
			return apis.NewTooManyRequestsError("Rate limit exceeded. Please try again later.", nil)
		}

		return e.Next()
	}
}

// AntiBot refuses requests from obvious crawlers.
func (r *RateLimiter) AntiBot() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
			return apis.NewForbiddenError("Access denied", nil)
		}
		return e.Next()
	}
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	lower := strings.ToLower(ua)
	for _, pattern := range suspicious {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func clientIP(e *core.RequestEvent) string {
	if e.App != nil {
		return e.RealIP()
	}
	host, _, err := net.SplitHostPort(e.Request.RemoteAddr)
	if err != nil {
		return e.Request.RemoteAddr
	}
	return host
}
