// Package ingest owns the UDP socket receiving orientation datagrams from
// the upstream sensor and feeds them through normalization into the shared
// store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/skyframe-data/orientation.relay/internal/metrics"
	"github.com/skyframe-data/orientation.relay/internal/monitoring"
	"github.com/skyframe-data/orientation.relay/internal/orientation"
	"github.com/skyframe-data/orientation.relay/internal/store"
	"github.com/skyframe-data/orientation.relay/internal/timeutil"
)

// Config contains the options for a Listener.
type Config struct {
	// Addr is the UDP listen address, all interfaces by default (":9001").
	Addr string
	// RcvBuf is the socket receive buffer size in bytes.
	RcvBuf int
	// LogInterval is the cadence of packet-stats log lines; defaults to a
	// minute.
	LogInterval time.Duration
	// Store receives every successfully normalized sample.
	Store *store.Store
	// Clock stamps normalized samples; nil uses the wall clock.
	Clock timeutil.Clock
	// Metrics is optional Prometheus instrumentation.
	Metrics *metrics.Collector
}

// Listener receives orientation datagrams, decodes and normalizes each one,
// and publishes valid samples to the store, flipping the relay live on the
// first success. Any sender on the bound port can drive the stream; the
// deployment assumes a private trusted link.
type Listener struct {
	addr        string
	rcvBuf      int
	logInterval time.Duration
	store       *store.Store
	norm        *orientation.Normalizer
	metrics     *metrics.Collector

	conn *net.UDPConn

	packets  atomic.Int64
	bytes    atomic.Int64
	rejected atomic.Int64
}

// NewListener creates a Listener from the configuration.
func NewListener(cfg Config) *Listener {
	logInterval := cfg.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &Listener{
		addr:        cfg.Addr,
		rcvBuf:      cfg.RcvBuf,
		logInterval: logInterval,
		store:       cfg.Store,
		norm:        orientation.NewNormalizer(cfg.Clock),
		metrics:     cfg.Metrics,
	}
}

// Listen binds the UDP socket. Bind failure is the listener's one fatal
// startup path and is returned to the caller to surface.
func (l *Listener) Listen() error {
	addr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %q: %w", l.addr, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address %q: %w", l.addr, err)
	}
	l.conn = conn

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("warning: failed to set UDP receive buffer to %d: %v", l.rcvBuf, err)
		}
	}

	monitoring.Logf("UDP listener started on %s", conn.LocalAddr())
	return nil
}

// LocalAddr returns the bound socket address; nil before Listen.
func (l *Listener) LocalAddr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Serve receives datagrams until the context is cancelled. Per-packet
// errors are logged and dropped; the loop itself only ends with the
// context.
func (l *Listener) Serve(ctx context.Context) error {
	if l.conn == nil {
		return fmt.Errorf("listener is not bound; call Listen first")
	}
	defer l.conn.Close()

	go l.logStats(ctx)

	buffer := make([]byte, 2048) // inbound payloads are small JSON records
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP listener stopping")
			return ctx.Err()
		default:
			// short read deadline so cancellation is honored promptly
			l.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, addr, err := l.conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			l.handlePacket(buffer[:n], addr)
		}
	}
}

// Start binds and serves in one call.
func (l *Listener) Start(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	return l.Serve(ctx)
}

// Close releases the socket. Safe to call before Listen.
func (l *Listener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

// handlePacket runs one datagram through decode and normalization. Every
// failure is a drop, never a fault: malformed input from an unknown sender
// must not disturb the receive loop.
func (l *Listener) handlePacket(data []byte, from net.Addr) {
	l.packets.Add(1)
	l.bytes.Add(int64(len(data)))
	if l.metrics != nil {
		l.metrics.PacketsReceived.Inc()
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		l.reject()
		monitoring.Logf("failed to decode datagram from %v: %v", from, err)
		return
	}

	sample, err := l.norm.Normalize(raw)
	if err != nil {
		l.reject()
		monitoring.Logf("dropping datagram from %v: %v", from, err)
		return
	}

	l.store.PublishLive(sample)
}

func (l *Listener) reject() {
	l.rejected.Add(1)
	if l.metrics != nil {
		l.metrics.PacketsRejected.Inc()
	}
}

// logStats periodically reports receive counters, with an early first report
// so startup is not silent for a full interval.
func (l *Listener) logStats(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.reportStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.reportStats()
		}
	}
}

func (l *Listener) reportStats() {
	packets := l.packets.Swap(0)
	bytes := l.bytes.Swap(0)
	rejected := l.rejected.Swap(0)
	if packets == 0 {
		return
	}
	monitoring.Logf("ingest: %d packets (%.1f KB), %d rejected, mode=%s",
		packets, float64(bytes)/1024, rejected, modeString(l.store.Live()))
}

func modeString(live bool) string {
	if live {
		return "live"
	}
	return "synthetic"
}
