package main

import (
	"context"
	"fmt"
	"os"

	"FlowSpectra/pkg/pcap"

	"github.com/rs/zerolog/log"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go <path_to_pcap_file>")
		os.Exit(1)
	}

	packets, err := pcap.ReadAll(context.Background(), os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read capture")
	}

	type counters struct{ packets, bytes int }
	perFlow := make(map[string]*counters)
	var order []string

	for _, info := range packets {
		fmt.Printf("[%s] %s len=%d digest=%016x\n",
			info.Timestamp.Format("15:04:05.000000"), info.FiveTuple, info.Length, info.Digest)

		key := info.FiveTuple.String()
		c, ok := perFlow[key]
		if !ok {
			c = &counters{}
			perFlow[key] = c
			order = append(order, key)
		}
		c.packets++
		c.bytes += info.Length
	}

	fmt.Printf("\n%d packets, %d flows\n", len(packets), len(order))
	for _, key := range order {
		fmt.Printf("  %s: %d packets, %d bytes\n", key, perFlow[key].packets, perFlow[key].bytes)
	}
}
