package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestRecorder receives request latency keyed by route template.
type RequestRecorder interface {
	RecordRequest(endpoint string, status int, seconds float64)
}

// Metrics records latency per route template to keep label cardinality low.
// Unmatched routes are folded into a single label.
func Metrics(rec RequestRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rec == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			rec.RecordRequest(route, status, time.Since(start).Seconds())
			return err
		}
	}
}
