package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/manager"

	"github.com/spf13/cobra"
)

var (
	reduceFlowmon         string
	reduceTx              []string
	reduceRx              []string
	reduceStrict          bool
	reduceAllowDuplicates bool
	reduceColor           bool
)

var reduceCmd = &cobra.Command{
	Use:   "reduce",
	Short: "Reduce flow records into a report",
	Long: "reduce loads flow records from a FlowMonitor XML file or from tx/rx packet\n" +
		"captures, prints the report and hands it to the configured writers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyReduceFlags(cmd, cfg)

		src, err := manager.NewSource(cfg.Source)
		if err != nil {
			return err
		}

		// the report is printed below, so stdout text writers would repeat it
		cfg.Writers = withoutStdoutText(cfg.Writers)

		m, err := manager.NewManager(cfg)
		if err != nil {
			return err
		}
		defer m.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := m.Run(ctx, src)
		if report != nil {
			fmt.Fprint(cmd.OutOrStdout(), renderReport(report, reduceColor))
		}
		return err
	},
}

// applyReduceFlags lets explicitly set flags override the config file.
func applyReduceFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("flowmon") {
		c.Source.Type = "flowmon"
		c.Source.Flowmon.Path = reduceFlowmon
	}
	if flags.Changed("tx") {
		c.Source.Type = "capture"
		c.Source.Capture.TxPaths = reduceTx
	}
	if flags.Changed("rx") {
		c.Source.Type = "capture"
		c.Source.Capture.RxPaths = reduceRx
	}
	if flags.Changed("strict") {
		c.Reducer.Strict = reduceStrict
	}
	if flags.Changed("allow-duplicates") {
		c.Reducer.AllowDuplicates = reduceAllowDuplicates
	}
}

func withoutStdoutText(defs []config.WriterDef) []config.WriterDef {
	var out []config.WriterDef
	for _, d := range defs {
		if d.Type == "text" && d.Text.Path == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

func init() {
	addReduceFlags(reduceCmd)
}

func addReduceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reduceFlowmon, "flowmon", "", "Path to a FlowMonitor XML file")
	cmd.Flags().StringArrayVar(&reduceTx, "tx", nil, "Capture recorded at the sender (repeatable)")
	cmd.Flags().StringArrayVar(&reduceRx, "rx", nil, "Capture recorded at the receiver (repeatable)")
	cmd.Flags().BoolVar(&reduceStrict, "strict", true, "Reject malformed flow records (--strict=false to accept them)")
	cmd.Flags().BoolVar(&reduceAllowDuplicates, "allow-duplicates", false, "Accept rx > tx in strict mode")
	cmd.Flags().BoolVar(&reduceColor, "color", false, "Render the aggregate block in color")
	cmd.MarkFlagsMutuallyExclusive("flowmon", "tx")
	cmd.MarkFlagsMutuallyExclusive("flowmon", "rx")
}
