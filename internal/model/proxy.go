// Package model defines shared types for the router.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// ProxyRequest is an inbound request bound for the dynamic origin.
// Header is the inbound header set; it is never mutated.
type ProxyRequest struct {
	Ctx           context.Context
	Method        string
	Path          string
	RawPath       string
	RawQuery      string
	Header        http.Header
	Body          io.ReadCloser
	ContentLength int64 // -1 means unknown, as in http.Request
}

// ProxyResponse is the dynamic origin's response, streamed back unchanged.
type ProxyResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       io.ReadCloser
}

// StaticPage is content fetched from the static origin. Only the body is kept;
// the router serves it with its own fixed headers.
type StaticPage struct {
	URL  string
	Body []byte
}

// Fixed response headers for static pages.
const (
	StaticContentType  = "text/html; charset=UTF-8"
	StaticCacheControl = "public, max-age=300"
)

// TunnelTarget is where an upgrade request is relayed, with the rewritten
// Host and header set to send on the handshake.
type TunnelTarget struct {
	URL    *url.URL
	Host   string
	Header http.Header
}
