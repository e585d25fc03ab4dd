// Package main is the entry point of the acceptor gateway.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Environment variables providing flag defaults.
const (
	envConfigPath = "GATEWAY_CONFIG_PATH"
	envLogLevel   = "GATEWAY_LOG_LEVEL"
	envLogFormat  = "GATEWAY_LOG_FORMAT"

	defaultConfigPath = "configs/gateway.yaml"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "gateway",
		Short: "API gateway routing requests to deployed APIs",
		Long: `gateway accepts HTTP requests and TLS connections on the configured
servers and routes each one to the deployed API whose acceptor matches it.

APIs are deployed from the configuration file and, optionally, from a
Redis channel carrying deployment events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c",
		envDefault(envConfigPath, defaultConfigPath), "path to the configuration file")
	flags.StringVar(&opts.logLevel, "log-level",
		envDefault(envLogLevel, ""), "log level (debug, info, warn, error); overrides the configuration")
	flags.StringVar(&opts.logFormat, "log-format",
		envDefault(envLogFormat, ""), "log format (json, console); overrides the configuration")

	root.AddCommand(
		newServeCmd(opts),
		newRoutesCmd(opts),
		newVersionCmd(),
	)
	return root
}

// envDefault returns the value of key when it is set and non-empty.
func envDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
