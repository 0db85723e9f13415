package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

const ctxLogger = "logger"

// RequestLogger logs one line per request with method, route, status,
// latency and actor.  5xx responses log at error level, 4xx at warn.  The
// logger is also made available to handlers through Logger.
func RequestLogger(logger *log.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			c.Set(ctxLogger, logger)
			err := next(c)
			if err != nil {
				// let echo's error handler write the response so the status is final
				c.Error(err)
			}

			status := c.Response().Status
			fields := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"latency", time.Since(start).Round(time.Microsecond),
				"actor", subject(c),
			}
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				fields = append(fields, "request_id", id)
			}
			switch {
			case status >= 500:
				logger.Error("request", fields...)
			case status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}

// Logger returns the logger installed by RequestLogger, or log.Default()
// when the request did not pass through it.
func Logger(c echo.Context) *log.Logger {
	if l, ok := c.Get(ctxLogger).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
