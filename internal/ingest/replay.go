package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/skyframe-data/orientation.relay/internal/monitoring"
)

// ReplayPCAP feeds captured datagrams from a pcap file through the same
// per-packet path as the live socket, for offline development against
// recorded sensor sessions. Only UDP packets destined for udpPort are
// considered; 0 matches any port.
func (l *Listener) ReplayPCAP(ctx context.Context, path string, udpPort int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read pcap file %s: %w", path, err)
	}

	var total, matched int
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("pcap replay stopping (processed %d packets)", total)
			return ctx.Err()
		default:
		}

		data, _, err := r.ReadPacketData()
		if err == io.EOF {
			monitoring.Logf("pcap replay complete: %d packets read, %d datagrams replayed", total, matched)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read pcap packet: %w", err)
		}
		total++

		pkt := gopacket.NewPacket(data, r.LinkType(), gopacket.Default)
		udpLayer := pkt.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok {
			continue
		}
		if udpPort != 0 && int(udp.DstPort) != udpPort {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}

		matched++
		l.handlePacket(udp.Payload, replaySource{})
	}
}

// replaySource stands in for the remote address when packets come from a
// capture instead of the socket.
type replaySource struct{}

func (replaySource) Network() string { return "pcap" }
func (replaySource) String() string  { return "pcap-replay" }
