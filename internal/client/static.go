package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"edge-router/internal/config"
	"edge-router/internal/metrics"
	"edge-router/internal/model"
)

var (
	// ErrStaticStatus is returned when the static origin answers with a non-2xx status.
	ErrStaticStatus = errors.New("static origin returned non-success status")
	// ErrStaticTooLarge is returned when a page exceeds upstream.static_max_bytes.
	ErrStaticTooLarge = errors.New("static page exceeds size limit")
)

const staticUserAgent = "edge-router/1.0"

// StaticClient fetches prebuilt pages from the static origin.
type StaticClient struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewStaticClient creates a StaticClient whose every fetch is bounded by
// upstream.static_timeout_seconds. Redirects from the static origin are
// followed since only the final page matters.
func NewStaticClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *StaticClient {
	return &StaticClient{
		httpClient: &http.Client{
			Transport: newTransport(cfg),
			Timeout:   time.Duration(cfg.Upstream.StaticTimeoutSeconds) * time.Second,
		},
		maxBytes: cfg.Upstream.StaticMaxBytes,
		logger:   logger.With("component", "static_client"),
		metrics:  m,
	}
}

// Fetch performs a single GET for url and returns the full body. There is no
// retry. A non-2xx status yields an error wrapping ErrStaticStatus.
func (c *StaticClient) Fetch(ctx context.Context, url string) (*model.StaticPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build static request: %w", err)
	}
	req.Header.Set("User-Agent", staticUserAgent)
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(metrics.OriginStatic, http.MethodGet).Observe(duration)
			c.metrics.UpstreamErrors.WithLabelValues(metrics.OriginStatic).Inc()
		}
		return nil, fmt.Errorf("static request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(metrics.OriginStatic, http.MethodGet).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(metrics.OriginStatic, http.MethodGet, strconv.Itoa(resp.StatusCode)).Inc()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrStaticStatus, resp.StatusCode)
	}

	body, err := readLimited(resp.Body, c.maxBytes)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("static page fetched", "url", url, "bytes", len(body))
	return &model.StaticPage{URL: url, Body: body}, nil
}

// readLimited reads r fully, failing with ErrStaticTooLarge past limit bytes.
// A limit of zero or less disables the check.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read static body: %w", err)
		}
		return body, nil
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read static body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrStaticTooLarge, limit)
	}
	return body, nil
}
