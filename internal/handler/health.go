package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"edge-router/internal/config"
	"edge-router/internal/route"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	table   *route.Table
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, table *route.Table, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, table: table, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type statusResponse struct {
	Status         string   `json:"status"`
	Version        string   `json:"version"`
	PublicHost     string   `json:"public_host"`
	StaticOrigin   string   `json:"static_origin"`
	DynamicOrigin  string   `json:"dynamic_origin"`
	StaticRoutes   []string `json:"static_routes"`
	DynamicOnly    []string `json:"dynamic_only"`
	MetricsEnabled bool     `json:"metrics_enabled"`
}

// Status reports the router's version and effective routing configuration.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:         "ok",
		Version:        string(h.version),
		PublicHost:     h.cfg.Origins.PublicHost,
		StaticOrigin:   h.cfg.Origins.StaticBaseURL,
		DynamicOrigin:  h.cfg.Origins.DynamicBaseURL,
		StaticRoutes:   prefixes(h.table.Static()),
		DynamicOnly:    prefixes(h.table.DynamicOnly()),
		MetricsEnabled: h.cfg.Metrics.Enabled,
	})
}

func prefixes(entries []route.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Prefix)
	}
	return out
}
