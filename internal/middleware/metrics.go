package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"edge-router/internal/metrics"
)

// MetricsMiddleware counts and times every request by method, status and
// route label. label must return a bounded set of values; the router passes
// route.Table.Label so a prefix, "dynamic" or "dynamic_only" is recorded
// instead of the raw path.
func MetricsMiddleware(m *metrics.Metrics, label func(path string) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			err := next(c)

			req := c.Request()
			method := metrics.NormalizeMethod(req.Method)
			status := strconv.Itoa(finalStatus(c, err))
			routeLabel := label(req.URL.Path)

			m.RequestsTotal.WithLabelValues(method, status, routeLabel).Inc()
			m.RequestDuration.WithLabelValues(method, status, routeLabel).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// finalStatus is the status the client ends up with. Errors returned past
// this point are written later by Echo's error handler. Tunnels never commit
// through Echo; the router stamps 101 on the response after the hijack.
func finalStatus(c echo.Context, err error) int {
	res := c.Response()
	if err == nil {
		return res.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if res.Committed {
		return res.Status
	}
	return http.StatusInternalServerError
}
