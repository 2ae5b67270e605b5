// Package httpx holds the cross-cutting Fiber middleware.
package httpx

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jomosautsem/lex/internal/auth"
)

const (
	HeaderRequestID = "X-Request-ID"
	localRequestID  = "requestid"
)

// RequestID keeps an incoming X-Request-ID or mints a KSUID, and echoes it back.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = ksuid.New().String()
		}
		c.Locals(localRequestID, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

// RequestLog writes one entry per request. Errors are rendered by the app's
// error handler first so the logged status is the one the client saw.
func RequestLog(log *zap.Logger) fiber.Handler {
	log = log.Named("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", RequestIDFrom(c)),
		}
		if u := auth.CurrentUser(c); u != nil {
			fields = append(fields, zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
		}

		lvl := zapcore.InfoLevel
		switch {
		case status >= 500:
			lvl = zapcore.ErrorLevel
		case status >= 400:
			lvl = zapcore.WarnLevel
		}
		log.Check(lvl, "request").Write(fields...)
		return nil
	}
}
