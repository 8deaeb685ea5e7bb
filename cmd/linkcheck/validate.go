package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/linkcheck-service/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a linkcheck configuration file without touching the store.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (default ./config.ini)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Store:      %s (table %s)\n", cfg.Database.Driver, cfg.Database.TableName)
	fmt.Fprintf(out, "  Cutoff:     %s\n", cfg.Input.Date)
	fmt.Fprintf(out, "  Batch size: %d\n", cfg.Input.BatchSize)
	fmt.Fprintf(out, "  Workers:    %d..%d (%s, +%d)\n",
		cfg.Scheduler.Floor, cfg.Scheduler.Ceiling, cfg.Scheduler.Policy, cfg.Scheduler.Increment)
	fmt.Fprintf(out, "  Telemetry:  %s every %s\n", cfg.Telemetry.Source, cfg.Telemetry.Interval)
	return nil
}
