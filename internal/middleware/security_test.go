package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders_AddsHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	res := rec.Result()
	defer func() { _ = res.Body.Close() }()

	tests := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	}
	for key, want := range tests {
		if v := res.Header.Get(key); v != want {
			t.Errorf("%s = %q, want %q", key, v, want)
		}
	}
}

func TestSecurityHeaders_KeepsRequestHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())

	var gotUpgrade, gotConnection string
	e.GET("/test", func(c echo.Context) error {
		gotUpgrade = c.Request().Header.Get("Upgrade")
		gotConnection = c.Request().Header.Get("Connection")
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if gotUpgrade != "websocket" {
		t.Errorf("Upgrade = %q, want %q", gotUpgrade, "websocket")
	}
	if gotConnection != "Upgrade" {
		t.Errorf("Connection = %q, want %q", gotConnection, "Upgrade")
	}
}
