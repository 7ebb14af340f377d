// Command imu-publisher reads orientation quaternions from a serial IMU and
// forwards them as JSON datagrams to a relay's UDP ingest port. With no
// serial device attached it falls back to a synthetic motion profile, which
// makes it usable as a load source during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/skyframe-data/orientation.relay/internal/sensor"
)

var (
	target = flag.String("target", "127.0.0.1:9001", "Relay UDP address to publish to")
	device = flag.String("device", "", "Serial device carrying IMU quaternions (empty for synthetic data)")
	baud   = flag.Int("baud", 115200, "Serial baud rate")
	rate   = flag.Int("rate", 60, "Publish rate in Hz")
	fov    = flag.Float64("fov", 40, "Field of view in degrees to attach to each sample")
)

// packet is the wire shape the relay ingests.
type packet struct {
	Q      [4]float64 `json:"q"`
	FOVDeg float64    `json:"fov_deg"`
}

func main() {
	flag.Parse()

	if *rate <= 0 {
		log.Fatalf("invalid rate %d, must be positive", *rate)
	}

	src, err := openSource()
	if err != nil {
		log.Fatalf("failed to open sensor source: %v", err)
	}
	defer src.Close()

	raddr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("invalid target address %q: %v", *target, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		log.Fatalf("failed to dial %s: %v", *target, err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("publishing to %s at %d Hz", *target, *rate)
	if err := publish(ctx, src, conn); err != nil && err != context.Canceled {
		log.Fatalf("publisher failed: %v", err)
	}
	log.Print("publisher stopped")
}

func openSource() (sensor.Source, error) {
	if *device == "" {
		log.Print("no serial device given, publishing synthetic motion")
		return sensor.NewMockSource(nil, *fov), nil
	}
	log.Printf("reading IMU from %s at %d baud", *device, *baud)
	return sensor.OpenSerial(*device, *baud, *fov)
}

func publish(ctx context.Context, src sensor.Source, conn *net.UDPConn) error {
	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	var sent, dropped int64
	stats := time.NewTicker(10 * time.Second)
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stats.C:
			log.Printf("stats: sent=%d dropped=%d", sent, dropped)
		case <-ticker.C:
			reading, err := src.Next()
			if err != nil {
				return err
			}
			data, err := json.Marshal(packet{
				Q:      [4]float64{reading.Q.Real, reading.Q.Imag, reading.Q.Jmag, reading.Q.Kmag},
				FOVDeg: reading.FOVDeg,
			})
			if err != nil {
				return err
			}
			if _, err := conn.Write(data); err != nil {
				// transient send errors are expected when the relay
				// is down, keep publishing
				dropped++
				continue
			}
			sent++
		}
	}
}
