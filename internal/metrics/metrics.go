// Package metrics bundles the Prometheus instrumentation for the relay's
// ingest and broadcast paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the relay's Prometheus metrics and serves their
// exposition handler.
type Collector struct {
	gatherer prometheus.Gatherer

	PacketsReceived  prometheus.Counter
	PacketsRejected  prometheus.Counter
	FramesSent       prometheus.Counter
	SendFailures     prometheus.Counter
	ClientsConnected prometheus.Gauge
}

// NewCollector registers the relay metrics against reg, defaulting to the
// global Prometheus registry when nil. Re-registering an already-known
// collector reuses the existing one so restarts of subsystems are safe.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.PacketsReceived, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_udp_packets_received_total",
		Help: "Datagrams received on the ingest socket, valid or not.",
	})); err != nil {
		return nil, err
	}
	if c.PacketsRejected, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_udp_packets_rejected_total",
		Help: "Datagrams dropped for decode or validation failures.",
	})); err != nil {
		return nil, err
	}
	if c.FramesSent, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_ws_frames_sent_total",
		Help: "WebSocket frames successfully written to consumers.",
	})); err != nil {
		return nil, err
	}
	if c.SendFailures, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_ws_send_failures_total",
		Help: "WebSocket writes that failed and removed their session.",
	})); err != nil {
		return nil, err
	}

	clients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_ws_clients_connected",
		Help: "Currently connected WebSocket consumers.",
	})
	if err := reg.Register(clients); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			clients = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	c.ClientsConnected = clients

	return c, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter), nil
		}
		return nil, err
	}
	return c, nil
}

// Handler returns the exposition handler backing the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
