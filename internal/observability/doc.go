// Package observability provides logging, metrics, and tracing
// functionality for the acceptor gateway.
//
// # Logging
//
// The Logger interface provides structured logging backed by zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("api deployed",
//	    observability.String("api", id),
//	    observability.Int("acceptors", n),
//	)
//
// # Metrics
//
// Prometheus metrics for acceptors, resolutions, lifecycle events and
// entrypoint traffic live on a dedicated registry:
//
//	metrics := observability.NewMetrics("gateway")
//	handler := metrics.Handler()
//
// All Metrics methods are safe on a nil receiver, so components can be
// built without metrics in tests.
//
// # Tracing
//
// OpenTelemetry tracing with optional OTLP gRPC export:
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{ServiceName: "gateway"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(ctx)
package observability
