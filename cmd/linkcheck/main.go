// Package main is the entry point for the linkcheck CLI.
//
// Usage:
//
//	linkcheck run -c config.ini                      # Check every record older than input.date
//	linkcheck run -c config.ini --date 2019-01-01    # Override the cutoff date
//	linkcheck validate -c config.ini                 # Validate configuration
//	linkcheck version                                # Show version info
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// exitInterrupted is the conventional status of a process stopped by SIGINT.
const exitInterrupted = 130

var errInterrupted = errors.New("interrupted")

var rootCmd = &cobra.Command{
	Use:   "linkcheck",
	Short: "Record the HTTP status of stored URLs",
	Long: `linkcheck reads every record dated before a cutoff from a relational
store, issues one GET per URL and writes the response status back to the
record. Concurrency grows while measured network throughput keeps rising and
never exceeds the connections the store can spare.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errInterrupted) {
			os.Exit(exitInterrupted)
		}
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "linkcheck %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
