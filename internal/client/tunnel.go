package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/yhat/wsutil"

	"edge-router/internal/config"
	"edge-router/internal/metrics"
	"edge-router/internal/model"
)

// tunnelDialTimeout bounds the TCP connect and TLS handshake to the origin.
const tunnelDialTimeout = 10 * time.Second

// Tunnel relays WebSocket upgrades to the dynamic origin. It dials the origin,
// hijacks the inbound connection, writes the prepared request and then copies
// bytes in both directions until either side closes. The origin's handshake
// response reaches the client unmodified.
type Tunnel struct {
	tlsConfig   *tls.Config
	dialTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewTunnel creates a Tunnel. The metrics parameter is optional.
func NewTunnel(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Tunnel {
	return &Tunnel{
		tlsConfig:   tlsConfig(cfg),
		dialTimeout: tunnelDialTimeout,
		logger:      logger.With("component", "tunnel"),
		metrics:     m,
	}
}

// Serve blocks for the lifetime of the tunnel. target.URL must use the ws or
// wss scheme; target.Host and target.Header replace the inbound Host and
// header set. wsutil appends the client address to X-Forwarded-For.
//
// A dial failure is returned before anything is written to w, so the caller
// can still answer with its own status. Once the origin is connected every
// outcome is written by the tunnel and Serve returns nil.
func (t *Tunnel) Serve(w http.ResponseWriter, r *http.Request, target *model.TunnelTarget) error {
	conn, err := t.dial(r.Context(), target.URL)
	if err != nil {
		return fmt.Errorf("dial dynamic origin: %w", err)
	}
	defer func() { _ = conn.Close() }()

	proxy := &wsutil.ReverseProxy{
		Director: func(out *http.Request) {
			u := *target.URL
			// wsutil redials wss targets itself; ws makes it use Dial below.
			u.Scheme = "ws"
			out.URL = &u
			out.Host = target.Host
			out.Header = target.Header
		},
		Dial: func(string, string) (net.Conn, error) {
			return conn, nil
		},
		ErrorLog: slog.NewLogLogger(t.logger.Handler(), slog.LevelError),
	}

	if t.metrics != nil {
		t.metrics.TunnelsActive.Inc()
		defer t.metrics.TunnelsActive.Dec()
	}

	t.logger.Debug("tunnel open", "host", target.Host, "path", target.URL.Path)
	proxy.ServeHTTP(w, r)
	t.logger.Debug("tunnel closed", "host", target.Host, "path", target.URL.Path)
	return nil
}

func (t *Tunnel) dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	d := &net.Dialer{Timeout: t.dialTimeout, KeepAlive: 30 * time.Second}

	switch u.Scheme {
	case "wss":
		td := &tls.Dialer{NetDialer: d, Config: t.tlsConfig}
		return td.DialContext(ctx, "tcp", hostPort(u, "443"))
	case "ws":
		return d.DialContext(ctx, "tcp", hostPort(u, "80"))
	default:
		return nil, fmt.Errorf("unsupported tunnel scheme %q", u.Scheme)
	}
}

func hostPort(u *url.URL, port string) string {
	if p := u.Port(); p != "" {
		port = p
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// IsHandshake reports whether r is a complete WebSocket handshake, i.e. it
// also lists "upgrade" in its Connection header.
func IsHandshake(r *http.Request) bool {
	return wsutil.IsWebSocketRequest(r)
}
