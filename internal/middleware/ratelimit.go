package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimit returns Echo's in-memory rate limiter, keyed by client IP.
// Requests for which skip returns true are not counted.
func RateLimit(rps float64, skip echomw.Skipper) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: skip,
		Store:   echomw.NewRateLimiterMemoryStore(rate.Limit(rps)),
	})
}

// SkipPrefix returns a Skipper matching request paths at or below prefix.
func SkipPrefix(prefix string) echomw.Skipper {
	return func(c echo.Context) bool {
		p := c.Request().URL.Path
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
}
