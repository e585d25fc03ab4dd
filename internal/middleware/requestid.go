package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/util"
)

// RequestID returns a middleware that adds a request ID to each request.
func RequestID() Middleware {
	return RequestIDWithGenerator(func() string {
		return uuid.New().String()
	})
}

// RequestIDWithGenerator returns a middleware that uses a custom ID generator.
func RequestIDWithGenerator(generator func() string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(util.HeaderRequestID)
			if requestID == "" {
				requestID = generator()
			}

			r = r.WithContext(util.ContextWithRequestID(r.Context(), requestID))
			w.Header().Set(util.HeaderRequestID, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
