// Package middleware provides the HTTP middleware wrapped around every
// entrypoint server.
//
//   - RequestID: request identifier injection
//   - Recovery: panic recovery with stack trace logging
//   - Logging: structured access logging
//   - Metrics: per-server request counters and latency
//
// Middleware functions follow the standard Go pattern and compose with
// Chain:
//
//	handler := middleware.Chain(next,
//	    middleware.Recovery(logger),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h with mws so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
