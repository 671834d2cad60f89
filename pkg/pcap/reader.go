package pcap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"FlowSpectra/internal/model"
	"FlowSpectra/internal/protocol"

	"github.com/google/gopacket/pcapgo"
	"github.com/rs/zerolog/log"
)

// Reader reads packets from a pcap file.
type Reader struct {
	file   *os.File
	source *pcapgo.Reader
	path   string
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	source, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pcap header of '%s': %w", filePath, err)
	}
	return &Reader{file: f, source: source, path: filePath}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadPackets reads all packets from the pcap file and sends the parsed
// PacketInfo to the provided channel. It closes the channel when done.
// Frames that carry no TCP or UDP packet are skipped.
func (r *Reader) ReadPackets(ctx context.Context, out chan<- *model.PacketInfo) error {
	defer close(out)

	linkType := r.source.LinkType()
	skipped := 0
	for {
		data, ci, err := r.source.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read packet from '%s': %w", r.path, err)
		}

		info, err := protocol.ParsePacket(data, linkType, ci.Timestamp)
		if err != nil {
			skipped++
			log.Debug().Err(err).Str("file", r.path).Msg("Skipping packet")
			continue
		}

		select {
		case out <- info:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if skipped > 0 {
		log.Info().Str("file", r.path).Int("skipped", skipped).Msg("Skipped non TCP/UDP packets")
	}
	return nil
}

// ReadAll is a convenience wrapper that collects every packet of a file.
func ReadAll(ctx context.Context, filePath string) ([]*model.PacketInfo, error) {
	reader, err := NewReader(filePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	out := make(chan *model.PacketInfo, 256)
	errCh := make(chan error, 1)
	go func() { errCh <- reader.ReadPackets(ctx, out) }()

	var packets []*model.PacketInfo
	for info := range out {
		packets = append(packets, info)
	}
	return packets, <-errCh
}
