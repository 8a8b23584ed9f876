package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the pricewatch command tree.
func NewRootCmd(version string) *cobra.Command {
	g := &Globals{}

	root := &cobra.Command{
		Use:           "pricewatch",
		Short:         "Commodity price watcher with source fallback and multi-channel notification",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Path to a YAML or JSON config file")
	root.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Override the configured log level")
	root.PersistentFlags().BoolVar(&g.JSON, "json", false, "Output in JSON format")

	root.AddCommand(
		NewRunCmd(g),
		NewServeCmd(g),
		NewSourcesCmd(g),
	)

	return root
}
