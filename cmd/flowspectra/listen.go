package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"FlowSpectra/internal/model"
	"FlowSpectra/internal/probe"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var listenColor bool

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print reports published on NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := probe.NewSubscriber(cfg.NATS)
		if err != nil {
			return err
		}
		defer sub.Close()

		var mu sync.Mutex
		out := cmd.OutOrStdout()
		err = sub.Start(func(report *model.Report) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprint(out, renderReport(report, listenColor))
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		log.Info().Msg("Listener shutting down")
		return nil
	},
}

func init() {
	listenCmd.Flags().BoolVar(&listenColor, "color", false, "Render the aggregate block in color")
}
