package main

import (
	"fmt"
	"os"

	"FlowSpectra/internal/model"
	"FlowSpectra/internal/reducer"
	"FlowSpectra/internal/writer"

	"github.com/rs/zerolog/log"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <flows.dat>")
		os.Exit(1)
	}

	flows, err := writer.ReadGobFlows(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read gob snapshot")
	}

	records := make([]model.FlowRecord, len(flows))
	for i, f := range flows {
		records[i] = f.Record
	}

	fmt.Printf("Decoded %d flows:\n", len(flows))
	fmt.Print(reducer.FormatReport(flows, reducer.ComputeAggregate(records)))
}
