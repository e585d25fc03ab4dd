package main

import (
	"fmt"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
)

const defaultServiceName = "avapigw-acceptor"

// loadAndValidateConfig locates the configuration file, loads and validates
// it. The resolved absolute path is returned with the configuration.
func loadAndValidateConfig(path string) (*config.GatewayConfig, string, error) {
	resolved, err := config.ResolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadConfig(resolved)
	if err != nil {
		return nil, "", err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, "", fmt.Errorf("invalid configuration %s: %w", resolved, err)
	}
	return cfg, resolved, nil
}

// logConfig merges the configured logging section with the command line.
// Flags win over the file.
func (o *globalOptions) logConfig(cfg *config.GatewayConfig) observability.LogConfig {
	logCfg := observability.DefaultLogConfig()

	if cfg != nil && cfg.Spec.Observability != nil && cfg.Spec.Observability.Logging != nil {
		l := cfg.Spec.Observability.Logging
		if l.Level != "" {
			logCfg.Level = l.Level
		}
		if l.Format != "" {
			logCfg.Format = l.Format
		}
		if l.Output != "" {
			logCfg.Output = l.Output
		}
	}

	if o.logLevel != "" {
		logCfg.Level = o.logLevel
	}
	if o.logFormat != "" {
		logCfg.Format = o.logFormat
	}
	return logCfg
}

// initLogger creates the process logger.
func initLogger(cfg observability.LogConfig) (observability.Logger, error) {
	logger, err := observability.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// tracerConfig returns the tracer settings, disabled when tracing is not
// configured.
func tracerConfig(cfg *config.GatewayConfig) observability.TracerConfig {
	tc := observability.TracerConfig{ServiceName: defaultServiceName}
	if cfg.Spec.Observability == nil || cfg.Spec.Observability.Tracing == nil {
		return tc
	}

	t := cfg.Spec.Observability.Tracing
	tc.Enabled = t.Enabled
	tc.OTLPEndpoint = t.OTLPEndpoint
	tc.SamplingRate = t.SamplingRate
	if t.ServiceName != "" {
		tc.ServiceName = t.ServiceName
	}
	return tc
}
