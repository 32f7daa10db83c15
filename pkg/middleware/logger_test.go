package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newEcho(buf *bytes.Buffer, opts ...LoggerOpt) *echo.Echo {
	l := slog.New(slog.NewJSONHandler(buf, nil))
	e := echo.New()
	e.Use(Logger(append([]LoggerOpt{WithLogger(l)}, opts...)...))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := newEcho(&buf)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Contains(t, buf.String(), `"msg":"REQUEST"`)
	assert.Contains(t, buf.String(), `"uri":"/ok"`)
	assert.Contains(t, buf.String(), `"method":"GET"`)

	buf.Reset()
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Contains(t, buf.String(), `"msg":"REQUEST_ERROR"`)
	assert.Contains(t, buf.String(), `"status":418`)
}

func TestLogger_SkipPaths(t *testing.T) {
	var buf bytes.Buffer
	e := newEcho(&buf, WithSkipPaths("/health"))

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())
}
