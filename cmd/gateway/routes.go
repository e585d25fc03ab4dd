package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/admin"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/registry"
)

// Output formats of the routes command.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// routeTable is the resolution order of every acceptor declared by a
// configuration.
type routeTable struct {
	HTTP []admin.AcceptorView `json:"http" yaml:"http"`
	TCP  []admin.AcceptorView `json:"tcp" yaml:"tcp"`
}

func newRoutesCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the acceptors of the configured APIs in resolution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadAndValidateConfig(opts.configPath)
			if err != nil {
				return err
			}
			table, err := buildRouteTable(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return writeRouteTable(cmd.OutOrStdout(), table, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format (table, json, yaml)")
	return cmd
}

// buildRouteTable deploys the configured APIs into a routing-only registry
// and reads back its ordered acceptors.
func buildRouteTable(ctx context.Context, cfg *config.GatewayConfig) (routeTable, error) {
	reg := registry.New(nil)
	defer func() { _ = reg.Clear(ctx) }()

	for i := range cfg.Spec.APIs {
		if err := reg.Create(ctx, &cfg.Spec.APIs[i]); err != nil {
			return routeTable{}, err
		}
	}

	return routeTable{
		HTTP: admin.NewAcceptorViews(reg.HTTPAcceptors()),
		TCP:  admin.NewAcceptorViews(reg.TCPAcceptors()),
	}, nil
}

func writeRouteTable(w io.Writer, table routeTable, format string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(table); err != nil {
			return err
		}
		return enc.Close()
	case outputTable:
		return writeTabular(w, table)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeTabular(w io.Writer, table routeTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tHOST\tPATH\tPRIORITY\tSERVERS\tAPI")
	for _, views := range [][]admin.AcceptorView{table.HTTP, table.TCP} {
		for _, v := range views {
			priority := "-"
			if v.Path != "" {
				priority = strconv.Itoa(v.Priority)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				v.Kind, orDash(v.Host), orDash(v.Path), priority,
				orDash(strings.Join(v.ServerIDs, ",")), v.API)
		}
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
