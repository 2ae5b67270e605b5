// Package ratelimit is a Redis fixed-window limiter and its Fiber middleware.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jomosautsem/lex/pkg/logger"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindow allows limit hits per key per window. Counters live in Redis
// so every instance shares them.
type FixedWindow struct {
	limit  int
	window time.Duration
	prefix string
	rdb    redis.Cmdable
	rep    logger.Reporter
	now    func() time.Time
}

func NewFixedWindow(rdb redis.Cmdable, prefix string, limit int, window time.Duration, rep logger.Reporter) (*FixedWindow, error) {
	if limit <= 0 || window < time.Millisecond {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	if rdb == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "lex:ratelimit"
	}
	if rep == nil {
		rep = logger.Nop{}
	}
	return &FixedWindow{limit: limit, window: window, prefix: prefix, rdb: rdb, rep: rep, now: time.Now}, nil
}

// Allow reports whether key is within quota. Redis failures fail closed.
func (l *FixedWindow) Allow(ctx context.Context, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := fixedWindowScript.Run(ctx, l.rdb, []string{redisKey}, windowMs).Int64()
	if err != nil {
		l.rep.Report("ratelimit.redis", err, zap.String("key", key))
		return false
	}
	return n <= int64(l.limit)
}

// Middleware answers 429 once keyFn's key is over quota.
func (l *FixedWindow) Middleware(keyFn func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.UserContext(), keyFn(c)) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(l.window.Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "Demasiadas solicitudes, intente más tarde")
		}
		return c.Next()
	}
}
