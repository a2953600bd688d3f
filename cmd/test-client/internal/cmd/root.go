// Package cmd implements the test-client commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/mundrapranay/silhouette-db/pkg/client"
)

// RootCmd represents the base "test-client" command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "test-client",
	Short: "Exercise a silhouette coordination server",
	Long: `Exercise a silhouette coordination server.

Rounds are started, filled by simulated workers and queried through PIR,
and every retrieved value is checked against what was published.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringP("server", "s", "127.0.0.1:9090", "Server address (host:port)")
	RootCmd.PersistentFlags().Bool("verbose", false, "Log client activity to stderr")
}

// Execute adds all subcommands to the RootCmd and sets their flags appropriately.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func connect(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("server")
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{Name: "test-client", Level: level})
	return client.NewClient(addr, logger)
}
