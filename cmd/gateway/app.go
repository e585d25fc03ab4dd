package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/admin"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/controlplane"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/gateway"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/health"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/proxy"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/registry"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/resolver"
)

const (
	shutdownTimeout   = 30 * time.Second
	redisCheckTimeout = 2 * time.Second
	metricsNamespace  = "gateway"
	deploymentsCheck  = "deployments"
	redisHealthCheck  = "redis"
)

// application holds all application components.
type application struct {
	config   *config.GatewayConfig
	logger   observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	registry *registry.Registry
	resolver *resolver.Resolver
	gateway  *gateway.Gateway
	checker  *health.Checker
	admin    *admin.Server
	redis    *redis.Client
	sources  []controlplane.Source
}

// newApplication wires every component of the gateway. The APIs are
// deployed later by the control plane sources, the file at configPath first.
func newApplication(cfg *config.GatewayConfig, configPath string, logger observability.Logger) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: observability.NewMetrics(metricsNamespace),
		checker: health.NewChecker(version),
	}
	app.metrics.SetBuildInfo(version, gitCommit)

	tracer, err := observability.NewTracer(tracerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	app.tracer = tracer

	app.registry = registry.New(newHandlerFactory(cfg.Spec.Proxy, logger),
		registry.WithLogger(logger),
		registry.WithMetrics(app.metrics),
	)
	app.resolver = resolver.New(app.registry,
		resolver.WithLogger(logger),
		resolver.WithMetrics(app.metrics),
	)

	app.gateway, err = gateway.New(cfg, app.resolver,
		gateway.WithLogger(logger),
		gateway.WithMetrics(app.metrics),
		gateway.WithTracer(tracer),
		gateway.WithShutdownTimeout(shutdownTimeout),
	)
	if err != nil {
		_ = tracer.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	app.checker.RegisterCheck(deploymentsCheck, health.DeploymentsCheck(func() int {
		return len(app.registry.Deployments())
	}))

	app.sources = []controlplane.Source{
		controlplane.NewFileSource(configPath, controlplane.WithFileLogger(logger)),
	}
	if cfg.Spec.Redis != nil {
		app.redis = controlplane.NewRedisClient(cfg.Spec.Redis)
		app.checker.RegisterCheck(redisHealthCheck, health.RedisCheck(app.redis, redisCheckTimeout))
		app.sources = append(app.sources, controlplane.NewRedisSource(app.redis, cfg.Spec.Redis.Channel,
			controlplane.WithRedisLogger(logger),
			controlplane.WithServers(cfg.ServerIDs()),
		))
	}

	if cfg.Spec.Admin != nil && cfg.Spec.Admin.Enabled {
		app.admin = admin.NewServer(cfg.Spec.Admin.Address, app.registry,
			admin.WithLogger(logger),
			admin.WithMetrics(app.metrics),
			admin.WithChecker(app.checker),
		)
	}

	return app, nil
}

// newHandlerFactory creates the proxy factory from the proxy settings.
func newHandlerFactory(cfg config.ProxyConfig, logger observability.Logger) *proxy.Factory {
	opts := []proxy.Option{
		proxy.WithLogger(logger),
		proxy.WithBufferSize(cfg.BufferSize),
	}
	if d := cfg.DialTimeout.Duration(); d > 0 {
		opts = append(opts, proxy.WithDialTimeout(d))
	}
	if d := cfg.DrainTimeout.Duration(); d > 0 {
		opts = append(opts, proxy.WithDrainTimeout(d))
	}
	if d := cfg.FlushInterval.Duration(); d != 0 {
		opts = append(opts, proxy.WithFlushInterval(d))
	}
	return proxy.NewFactory(opts...)
}

// run starts the servers and the control plane, blocks until ctx is done
// and then shuts everything down.
func (a *application) run(ctx context.Context) error {
	if err := a.gateway.Start(ctx); err != nil {
		a.shutdownObservability()
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	if a.admin != nil {
		if err := a.admin.Start(ctx); err != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = a.gateway.Stop(stopCtx)
			a.shutdownObservability()
			return fmt.Errorf("failed to start admin server: %w", err)
		}
	}

	adapter := reactor.NewAdapter(a.registry,
		reactor.WithAdapterLogger(a.logger),
		reactor.WithAdapterMetrics(a.metrics),
	)
	cpDone := make(chan error, 1)
	go func() {
		cpDone <- controlplane.Run(ctx, adapter, a.logger.With(observability.String("component", "controlplane")), a.sources...)
	}()

	a.logger.Info("gateway started",
		observability.String("version", version),
		observability.Int("servers", len(a.config.Spec.Servers)),
	)

	<-ctx.Done()
	a.logger.Info("shutting down")

	cpErr := <-cpDone
	return errors.Join(cpErr, a.shutdown())
}

// shutdown stops the entrypoints before undeploying the APIs so no request
// is routed to a stopped handler.
func (a *application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.checker.SetDraining(true)

	var errs []error
	if err := a.gateway.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.registry.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to undeploy APIs: %w", err))
	}
	if a.admin != nil {
		if err := a.admin.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown tracer: %w", err))
	}

	a.logger.Info("gateway stopped")
	return errors.Join(errs...)
}

func (a *application) shutdownObservability() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.tracer.Shutdown(context.Background())
}
