package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"edge-router/internal/config"
	"edge-router/internal/route"
)

func TestHealthz(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, config.HealthzPath, http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler(&config.Config{}, &route.Table{}, "test")
	if err := h.Healthz(c); err != nil {
		t.Fatalf("Healthz() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, config.StatusPath, http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	cfg := &config.Config{
		Origins: config.OriginsConfig{
			PublicHost:     "officeadmin.io",
			StaticBaseURL:  "https://pages.example.io",
			DynamicBaseURL: "https://n8n.up.railway.app",
		},
	}
	table, err := route.NewTable([]string{"/", "/blog"}, []string{"/signin"})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	h := NewHealthHandler(cfg, table, "1.2.3")
	if err := h.Status(c); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("body.status = %q, want %q", body.Status, "ok")
	}
	if body.Version != "1.2.3" {
		t.Errorf("body.version = %q, want %q", body.Version, "1.2.3")
	}
	if body.PublicHost != "officeadmin.io" {
		t.Errorf("body.public_host = %q, want %q", body.PublicHost, "officeadmin.io")
	}
	if body.DynamicOrigin != "https://n8n.up.railway.app" {
		t.Errorf("body.dynamic_origin = %q", body.DynamicOrigin)
	}
	if len(body.StaticRoutes) != 2 || body.StaticRoutes[1] != "/blog" {
		t.Errorf("body.static_routes = %v, want [/ /blog]", body.StaticRoutes)
	}
	if len(body.DynamicOnly) != 1 || body.DynamicOnly[0] != "/signin" {
		t.Errorf("body.dynamic_only = %v, want [/signin]", body.DynamicOnly)
	}
}
