// Package service implements the routing decision and the forwarding logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"edge-router/internal/client"
	"edge-router/internal/config"
	"edge-router/internal/metrics"
	"edge-router/internal/model"
	"edge-router/internal/route"
)

// RouterService picks an origin per request and talks to it.
type RouterService struct {
	table       *route.Table
	static      *client.StaticClient
	origin      *client.OriginClient
	staticBase  string
	dynamicBase *url.URL
	publicHost  string
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewRouterService creates a RouterService. The metrics parameter is optional.
func NewRouterService(
	table *route.Table,
	static *client.StaticClient,
	origin *client.OriginClient,
	cfg *config.Config,
	logger *slog.Logger,
	m *metrics.Metrics,
) (*RouterService, error) {
	du, err := url.Parse(cfg.Origins.DynamicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse origins.dynamic_base_url: %w", err)
	}
	if du.Host == "" {
		return nil, fmt.Errorf("origins.dynamic_base_url %q has no host", cfg.Origins.DynamicBaseURL)
	}
	if _, err := url.Parse(cfg.Origins.StaticBaseURL); err != nil {
		return nil, fmt.Errorf("parse origins.static_base_url: %w", err)
	}

	return &RouterService{
		table:       table,
		static:      static,
		origin:      origin,
		staticBase:  cfg.Origins.StaticBaseURL,
		dynamicBase: &url.URL{Scheme: "https", Host: du.Host},
		publicHost:  cfg.Origins.PublicHost,
		logger:      logger.With("component", "router_service"),
		metrics:     m,
	}, nil
}

// Classify is the first routing stage.
func (s *RouterService) Classify(path string) route.Decision {
	return s.table.Classify(path)
}

// TryStatic is the second routing stage. It fetches the page for a Static
// decision and reports false when the request must go to the dynamic origin
// instead. Fetch failures are logged and never returned.
func (s *RouterService) TryStatic(ctx context.Context, d route.Decision) (*model.StaticPage, bool) {
	if d.Target != route.Static {
		return nil, false
	}

	target := StaticURL(s.staticBase, d)
	page, err := s.static.Fetch(ctx, target)
	if err != nil {
		s.logger.Warn("static fetch failed, falling back to dynamic origin",
			"route", d.Route.Prefix,
			"url", target,
			"err", err,
		)
		s.metrics.ObserveDecision(metrics.DecisionStaticFallback)
		return nil, false
	}

	s.metrics.ObserveDecision(metrics.DecisionStatic)
	return page, true
}

// Forward sends pr to the dynamic origin with rewritten headers. Redirects
// come back as they are. The caller closes the response body.
func (s *RouterService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	header := RewriteHeaders(pr.Header, s.publicHost, s.dynamicBase)
	target := DynamicURL(s.dynamicBase, pr.Path, pr.RawPath, pr.RawQuery)

	body := pr.Body
	if body == nil || pr.ContentLength == 0 {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(pr.Ctx, pr.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build dynamic request: %w", err)
	}
	req.Header = header
	req.Host = s.dynamicBase.Host
	if body != http.NoBody {
		req.ContentLength = pr.ContentLength
	}

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
	)
	s.metrics.ObserveDecision(metrics.DecisionDynamic)

	resp, err := s.origin.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward to dynamic origin: %w", err)
	}
	return resp, nil
}

// Tunnel prepares a WebSocket handshake for the dynamic origin. The returned
// URL uses the wss scheme.
func (s *RouterService) Tunnel(r *http.Request) *model.TunnelTarget {
	target := DynamicURL(s.dynamicBase, r.URL.Path, r.URL.RawPath, r.URL.RawQuery)
	target.Scheme = "wss"

	s.metrics.ObserveDecision(metrics.DecisionTunnel)

	return &model.TunnelTarget{
		URL:    target,
		Host:   s.dynamicBase.Host,
		Header: RewriteHeaders(r.Header, s.publicHost, s.dynamicBase),
	}
}

// StaticURL builds the static origin URL for a Static decision. The root
// entry maps to base itself; any other match maps to
// base + prefix + suffix + "/index.html", with a trailing slash on the suffix
// dropped first. The suffix is the decoded request path, so it is escaped
// again before joining: a decoded '?', '#' or '%' stays part of the path.
func StaticURL(base string, d route.Decision) string {
	if d.Route.IsRoot() {
		return base
	}
	p := &url.URL{Path: d.Route.Prefix + strings.TrimRight(d.Suffix, "/")}
	return strings.TrimRight(base, "/") + p.EscapedPath() + "/index.html"
}

// DynamicURL returns the request's path and query on the dynamic origin over HTTPS.
func DynamicURL(base *url.URL, path, rawPath, rawQuery string) *url.URL {
	return &url.URL{
		Scheme:   "https",
		Host:     base.Host,
		Path:     path,
		RawPath:  rawPath,
		RawQuery: rawQuery,
	}
}
