package gateway

import "github.com/vyrodovalexey/avapigw-acceptor/internal/observability"

type serverOptions struct {
	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// ServerOption configures an entrypoint server.
type ServerOption func(*serverOptions)

// WithServerLogger sets the server logger.
func WithServerLogger(logger observability.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithServerMetrics sets the metrics the server records to.
func WithServerMetrics(metrics *observability.Metrics) ServerOption {
	return func(o *serverOptions) {
		o.metrics = metrics
	}
}

// WithServerTracer enables request tracing on HTTP servers.
func WithServerTracer(tracer *observability.Tracer) ServerOption {
	return func(o *serverOptions) {
		o.tracer = tracer
	}
}

func applyServerOptions(opts []ServerOption) serverOptions {
	o := serverOptions{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.NopLogger()
	}
	return o
}
