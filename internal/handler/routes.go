package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edge-router/internal/config"
	"edge-router/internal/metrics"
	"edge-router/internal/middleware"
	"edge-router/internal/route"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Internal
// endpoints live under config.InternalPrefix; every other path, any method,
// goes to the router. Methods Echo has no name for (PURGE, MKCOL) match no
// route, so the RouteNotFound entries catch them before Echo answers 405.
// m is nil when metrics are disabled.
func RegisterRoutes(e *echo.Echo, router *RouterHandler, health *HealthHandler, cfg *config.Config, m *metrics.Metrics) {
	secure := middleware.SecurityHeaders()

	e.GET(config.HealthzPath, health.Healthz, secure)
	e.GET(config.StatusPath, health.Status, secure)

	if m != nil {
		h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
		e.GET(cfg.Metrics.Path, echo.WrapHandler(h), secure)
	}

	e.Any("/", router.Handle)
	e.Any("/*", router.Handle)
	e.RouteNotFound("/", router.Handle)
	e.RouteNotFound("/*", router.Handle)
}

// RouteLabel returns the metrics route labeler. Internal endpoints are
// labelled by their own path and everything else by the route table.
func RouteLabel(table *route.Table, cfg *config.Config) func(string) string {
	internal := map[string]bool{
		config.HealthzPath: true,
		config.StatusPath:  true,
	}
	if cfg.Metrics.Enabled {
		internal[cfg.Metrics.Path] = true
	}

	return func(path string) string {
		if internal[path] {
			return path
		}
		return table.Label(path)
	}
}
