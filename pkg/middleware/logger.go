package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type LoggerOpt func(*middleware.RequestLoggerConfig)

// WithSkipPaths stops logging requests whose path starts with one of the prefixes.
func WithSkipPaths(prefixes ...string) LoggerOpt {
	return func(c *middleware.RequestLoggerConfig) {
		c.Skipper = func(ctx echo.Context) bool {
			path := ctx.Request().URL.Path
			for _, p := range prefixes {
				if strings.HasPrefix(path, p) {
					return true
				}
			}
			return false
		}
	}
}

// WithLogger routes request logs to l instead of the default logger.
func WithLogger(l *slog.Logger) LoggerOpt {
	return func(c *middleware.RequestLoggerConfig) {
		c.LogValuesFunc = logValues(l)
	}
}

func Logger(opts ...LoggerOpt) echo.MiddlewareFunc {
	o := defaultOpt()
	for _, opt := range opts {
		opt(&o)
	}

	return middleware.RequestLoggerWithConfig(o)
}

func defaultOpt() middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogLatency:   true,
		LogURI:       true,
		LogMethod:    true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			return logValues(slog.Default())(c, v)
		},
	}
}

func logValues(l *slog.Logger) func(echo.Context, middleware.RequestLoggerValues) error {
	return func(_ echo.Context, v middleware.RequestLoggerValues) error {
		attrs := []slog.Attr{
			slog.String("method", v.Method),
			slog.String("uri", v.URI),
			slog.Int("status", v.Status),
			slog.Duration("latency", v.Latency),
		}
		if v.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", v.RequestID))
		}

		if v.Error == nil {
			l.LogAttrs(context.Background(), slog.LevelInfo, "REQUEST", attrs...)
			return nil
		}
		attrs = append(attrs, slog.String("err", v.Error.Error()))
		l.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR", attrs...)
		return nil
	}
}
