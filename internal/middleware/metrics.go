package middleware

import (
	"net/http"
	"time"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
)

// Metrics returns a middleware recording request count and latency for
// the server serverID.
func Metrics(metrics *observability.Metrics, serverID string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			metrics.RecordRequest(serverID, rw.status, time.Since(start))
		})
	}
}
