package proxy

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTargetURL is returned for an API target the proxy cannot serve.
	ErrInvalidTargetURL = errors.New("invalid target URL")

	// ErrUpstreamUnavailable is returned when the target cannot be dialed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrHandlerStopped is returned for traffic handed to a stopping handler.
	ErrHandlerStopped = errors.New("handler stopped")
)

// OpError describes a failed proxy operation on the target of an API.
type OpError struct {
	Op     string
	API    string
	Target string
	Err    error
}

func (e *OpError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("proxy %s %s: %v", e.Op, e.API, e.Err)
	}
	return fmt.Sprintf("proxy %s %s (%s): %v", e.Op, e.API, e.Target, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op, api, target string, err error) *OpError {
	return &OpError{Op: op, API: api, Target: target, Err: err}
}
