// Command resolve exercises the resolve library end to end: run a
// single lookup, validate a config and hosts file, or print version
// information.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var cfgPath string
var metricsAddr string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "resolve",
		Short: "A stub DNS resolver and lookup engine",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "resolve.toml", "location of the config file, generated on first run if missing")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics", "", "address to serve Prometheus metrics on, e.g. :9153 (disabled if empty)")

	root.AddCommand(newLookupCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "resolve v%s\n", version)
			return nil
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
