package util

import (
	"encoding/json"
	"net/http"
)

// HeaderRequestID carries the request id to clients and backends.
const HeaderRequestID = "X-Request-ID"

// ErrorResponse is the JSON body written for gateway-generated errors.
type ErrorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteJSONError writes an ErrorResponse with the given status.
func WriteJSONError(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := ErrorResponse{Status: status, Message: message}
	if r != nil {
		resp.RequestID = RequestIDFromContext(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// StatusRecorder remembers the status code written through it. The status
// is 200 until WriteHeader is called.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
	Wrote  bool
}

// NewStatusRecorder wraps w.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

// WriteHeader records code. Only the first call reaches w.
func (r *StatusRecorder) WriteHeader(code int) {
	if r.Wrote {
		return
	}
	r.Status, r.Wrote = code, true
	r.ResponseWriter.WriteHeader(code)
}

func (r *StatusRecorder) Write(b []byte) (int, error) {
	r.Wrote = true
	return r.ResponseWriter.Write(b)
}

// Flush forwards to w when it supports streaming.
func (r *StatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes w to http.ResponseController.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

var _ http.Flusher = (*StatusRecorder)(nil)
