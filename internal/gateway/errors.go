package gateway

import "errors"

// Sentinel errors for gateway operations.
var (
	// ErrGatewayNotStopped indicates that the gateway is not in
	// stopped state when a start operation is attempted.
	ErrGatewayNotStopped = errors.New("gateway is not in stopped state")

	// ErrGatewayNotRunning indicates that the gateway is not
	// running when a stop operation is attempted.
	ErrGatewayNotRunning = errors.New("gateway is not running")

	// ErrNilConfig indicates that a nil configuration was provided.
	ErrNilConfig = errors.New("configuration is required")

	// ErrNilResolver indicates that no resolver was provided.
	ErrNilResolver = errors.New("resolver is required")

	// ErrServerRunning indicates a server was started twice.
	ErrServerRunning = errors.New("server is already running")

	// ErrMaxConnections indicates the connection limit of a TCP server was reached.
	ErrMaxConnections = errors.New("maximum connections reached")

	// ErrNotTLS indicates a connection did not start with a TLS handshake.
	ErrNotTLS = errors.New("not a TLS handshake")
)
