// Package cmd wires the command-line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "edgetrace",
	Short: "Kernel trace-event telemetry for edge nodes",
	Long: `edgetrace turns raw kernel trace events into node telemetry:
per-process CPU time from scheduler switches, memory-reclaim stall time,
thermal zone temperature, and process-exec events, exported for Prometheus.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
