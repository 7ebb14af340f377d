package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewCollectorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.PacketsReceived.Inc()
	c.PacketsRejected.Inc()
	c.FramesSent.Add(3)
	c.ClientsConnected.Set(2)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"relay_udp_packets_received_total 1",
		"relay_udp_packets_rejected_total 1",
		"relay_ws_frames_sent_total 3",
		"relay_ws_clients_connected 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNewCollectorIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("first NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	// re-registration reuses the existing collectors
	first.PacketsReceived.Inc()
	second.PacketsReceived.Inc()

	rec := httptest.NewRecorder()
	second.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "relay_udp_packets_received_total 2") {
		t.Error("collectors registered twice instead of being reused")
	}
}
