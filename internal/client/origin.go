// Package client provides the outbound HTTP clients for the static and
// dynamic origins.
package client

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"edge-router/internal/config"
	"edge-router/internal/metrics"
	"edge-router/internal/model"
)

// newTransport returns a pooled HTTP/1.1 transport. HTTP/2 stays off because
// inbound Connection and Upgrade headers are forwarded as is, and HTTP/2
// rejects requests carrying them.
func newTransport(cfg *config.Config) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: tlsConfig(cfg),
	}
}

func tlsConfig(cfg *config.Config) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.Upstream.InsecureSkipVerify, //nolint:gosec // opt-in for staging origins
	}
}

// OriginClient sends requests to the dynamic origin.
type OriginClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewOriginClient creates an OriginClient with connection pooling.
// Redirects are returned to the caller instead of being followed, and the
// transport never negotiates compression on its own so bodies pass through
// byte for byte. upstream.timeout_seconds bounds the wait for response
// headers only; streamed bodies are bounded by the inbound request context.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewOriginClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *OriginClient {
	transport := newTransport(cfg)
	transport.DisableCompression = true
	transport.ResponseHeaderTimeout = time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second

	return &OriginClient{
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger.With("component", "origin_client"),
		metrics: m,
	}
}

// Do executes req against the dynamic origin and returns the raw response.
// The caller is responsible for closing the response body.
func (c *OriginClient) Do(req *http.Request) (*model.ProxyResponse, error) {
	c.logger.Debug("upstream request",
		"method", req.Method,
		"host", req.Host,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via ProxyResponse
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(metrics.OriginDynamic, method).Observe(duration)
			c.metrics.UpstreamErrors.WithLabelValues(metrics.OriginDynamic).Inc()
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(metrics.OriginDynamic, method).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(metrics.OriginDynamic, method, status).Inc()
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}
