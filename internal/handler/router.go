package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"edge-router/internal/client"
	"edge-router/internal/model"
	"edge-router/internal/service"
)

// RouterHandler serves every request that is not an internal endpoint.
type RouterHandler struct {
	service *service.RouterService
	tunnel  *client.Tunnel
	logger  *slog.Logger
}

// NewRouterHandler creates a RouterHandler.
func NewRouterHandler(svc *service.RouterService, tunnel *client.Tunnel, logger *slog.Logger) *RouterHandler {
	return &RouterHandler{
		service: svc,
		tunnel:  tunnel,
		logger:  logger.With("component", "router_handler"),
	}
}

// Handle classifies the request and serves it from exactly one origin: the
// static page when the path matches and the fetch succeeds, otherwise the
// dynamic origin.
func (h *RouterHandler) Handle(c echo.Context) error {
	req := c.Request()

	d := h.service.Classify(req.URL.Path)
	if page, ok := h.service.TryStatic(req.Context(), d); ok {
		return h.writeStatic(c, page)
	}

	if service.IsUpgrade(req.Header) && client.IsHandshake(req) {
		return h.serveTunnel(c)
	}

	return h.forward(c)
}

func (h *RouterHandler) writeStatic(c echo.Context, page *model.StaticPage) error {
	c.Response().Header().Set("Cache-Control", model.StaticCacheControl)
	return c.Blob(http.StatusOK, model.StaticContentType, page.Body)
}

func (h *RouterHandler) serveTunnel(c echo.Context) error {
	req := c.Request()
	res := c.Response()

	if err := h.tunnel.Serve(res, req, h.service.Tunnel(req)); err != nil {
		return h.mapError(c, err)
	}

	// A hijacked connection never commits through echo; record the switch
	// so access logs and metrics show it.
	if !res.Committed {
		res.Status = http.StatusSwitchingProtocols
	}
	return nil
}

func (h *RouterHandler) forward(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Path:          req.URL.Path,
		RawPath:       req.URL.RawPath,
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Origin headers replace any set by middleware, X-Request-Id included.
	dst := c.Response().Header()
	for key, vals := range resp.Header {
		dst[key] = vals
	}

	c.Response().WriteHeader(resp.StatusCode)

	// If copying fails mid-stream the status is already sent, so the client
	// sees a truncated body with the origin's status.
	if err := copyResponse(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

// copyResponse streams src to w, flushing after every read so long-lived
// responses such as server-sent events reach the client as they arrive.
func copyResponse(w *echo.Response, src io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			w.Flush()
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

func (h *RouterHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("dynamic origin error",
		"err", err,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "dynamic origin timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "dynamic origin timed out",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "dynamic origin host unreachable",
		})
	}

	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "dynamic origin connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "dynamic origin request failed",
	})
}
