// Package api exposes the relay's HTTP surface: the consumer WebSocket
// endpoint, the status and info queries, and the Prometheus exposition.
package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/skyframe-data/orientation.relay/internal/broadcast"
	"github.com/skyframe-data/orientation.relay/internal/httputil"
	"github.com/skyframe-data/orientation.relay/internal/metrics"
	"github.com/skyframe-data/orientation.relay/internal/monitoring"
	"github.com/skyframe-data/orientation.relay/internal/store"
	"github.com/skyframe-data/orientation.relay/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	store   *store.Store
	hub     *broadcast.Hub
	metrics *metrics.Collector
	udpPort int
}

// NewServer creates the HTTP API over the shared store and hub. metrics may
// be nil, in which case /metrics is not mounted.
func NewServer(st *store.Store, hub *broadcast.Hub, m *metrics.Collector, udpPort int) *Server {
	return &Server{
		store:   st,
		hub:     hub,
		metrics: m,
		udpPort: udpPort,
	}
}

// ServeMux mounts the relay's public endpoints.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.showInfo)
	mux.HandleFunc("/status", s.showStatus)
	mux.HandleFunc("/ws/orientation", s.hub.HandleOrientation)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// showStatus reports the read-only snapshot consumers and dashboards poll.
func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"clients_connected": s.hub.ClientCount(),
		"fake_mode":         !s.store.Live(),
		"has_data":          s.store.HasData(),
		"uptime":            s.store.Uptime().Seconds(),
	})
}

// showInfo identifies the server and its well-known endpoints.
func (s *Server) showInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.WriteJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"server":            "orientation-relay",
		"version":           version.Version,
		"clients_connected": s.hub.ClientCount(),
		"fake_mode":         !s.store.Live(),
		"endpoints": map[string]interface{}{
			"websocket": "/ws/orientation",
			"status":    "/status",
			"udp_port":  s.udpPort,
		},
	})
}

// CORSMiddleware permits cross-origin access from any origin; the web
// consumer usually runs on a different origin than the relay.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack passes through so the WebSocket upgrade works behind the logging
// wrapper.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
