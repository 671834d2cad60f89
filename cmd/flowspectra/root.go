package main

import (
	"fmt"
	"os"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/logging"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "flowspectra",
	Short: "Per-flow network performance reports",
	Long: "FlowSpectra reduces per-flow counters from a FlowMonitor dump or a pair of\n" +
		"packet captures into delivery, delay, jitter and throughput reports.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Log.Format = logFormat
		}
		return logging.Setup(cfg.Log)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration YAML")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console or json)")

	rootCmd.AddCommand(reduceCmd)
	rootCmd.AddCommand(listenCmd)
}
