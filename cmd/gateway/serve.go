package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Long: `Run the gateway servers, deploy the APIs of the configuration file and
keep them in sync with the file and the Redis deployment channel until
SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *globalOptions) error {
	cfg, configPath, err := loadAndValidateConfig(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := initLogger(opts.logConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting gateway",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	app, err := newApplication(cfg, configPath, logger)
	if err != nil {
		logger.Error("failed to initialize gateway", observability.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx); err != nil {
		logger.Error("gateway exited with errors", observability.Error(err))
		return err
	}
	return nil
}
