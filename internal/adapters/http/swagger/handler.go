// Package swagger serves the OpenAPI document of the admin API.
package swagger

import (
	"context"
	"net/http"
)

// RedocURL is the ReDoc bundle the docs page loads.
const RedocURL = "https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"

// Handler serves the document and the docs page, optionally behind wrap.
type Handler struct {
	wrap func(http.Handler) http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithMiddleware wraps both routes, e.g. with basic auth.
func WithMiddleware(wrap func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.wrap = wrap }
}

// Register attaches the OpenAPI routes to mux.
//
//	GET /openapi.yaml -> embedded OpenAPI spec
//	GET /api-docs     -> ReDoc HTML
func Register(_ context.Context, mux *http.ServeMux, opts ...Option) {
	if mux == nil {
		panic("mux is nil")
	}
	h := &Handler{wrap: func(next http.Handler) http.Handler { return next }}
	for _, opt := range opts {
		opt(h)
	}

	mux.Handle("GET /api-docs", h.wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})))
	mux.Handle("GET /openapi.yaml", h.wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})))
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>camctl API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="` + RedocURL + `"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
