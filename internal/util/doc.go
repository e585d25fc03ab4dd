// Package util provides utility functions and types shared across the
// gateway.
//
// # Context Helpers
//
// Context utilities for request-scoped data:
//
//	ctx = util.ContextWithRequestID(ctx, "req-123")
//	requestID := util.RequestIDFromContext(ctx)
//
// # HTTP Utilities
//
//	w := util.NewStatusRecorder(responseWriter)
//	handler.ServeHTTP(w, r)
//	status := w.Status
//
//	util.WriteJSONError(w, r, http.StatusNotFound, "no api matches the request")
package util
