package service

import (
	"net/http"
	"net/url"
	"strings"

	"edge-router/internal/route"
)

// RewriteHeaders returns a copy of src prepared for the dynamic origin:
//
//   - Origin equal to the public host, bare or with an http(s) scheme, becomes
//     the dynamic origin's base URL. Other Origin values pass through.
//   - The first occurrence of the public host inside Referer is replaced with
//     the dynamic host.
//   - Host is always the dynamic host.
//
// Every other header, Upgrade and Connection included, is copied unchanged.
// src is not modified.
func RewriteHeaders(src http.Header, publicHost string, dynamic *url.URL) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}

	if origin := dst.Get("Origin"); origin != "" && isPublicOrigin(origin, publicHost) {
		dst.Set("Origin", originOf(dynamic))
	}

	if referer := dst.Get("Referer"); publicHost != "" && strings.Contains(referer, publicHost) {
		dst.Set("Referer", strings.Replace(referer, publicHost, dynamic.Host, 1))
	}

	dst.Set("Host", dynamic.Host)
	return dst
}

func isPublicOrigin(origin, publicHost string) bool {
	if publicHost == "" {
		return false
	}
	for _, candidate := range []string{publicHost, "https://" + publicHost, "http://" + publicHost} {
		if route.EqualFold(origin, candidate) {
			return true
		}
	}
	return false
}

// originOf renders u as an Origin header value: scheme and host only.
func originOf(u *url.URL) string {
	return "https://" + u.Host
}

// IsUpgrade reports whether h asks for a WebSocket upgrade. The comparison is
// an ASCII case fold on the whole Upgrade value.
func IsUpgrade(h http.Header) bool {
	return route.EqualFold(h.Get("Upgrade"), "websocket")
}
