// Package broadcast owns the set of connected WebSocket consumers and fans
// the latest orientation sample out to all of them at a fixed cadence.
package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/skyframe-data/orientation.relay/internal/metrics"
	"github.com/skyframe-data/orientation.relay/internal/monitoring"
	"github.com/skyframe-data/orientation.relay/internal/store"
	"github.com/skyframe-data/orientation.relay/internal/timeutil"
)

// writeTimeout bounds a single frame write. A consumer that cannot drain
// within it fails the write and is dropped; there is no retry budget and no
// per-consumer queue.
const writeTimeout = time.Second

// Hub broadcasts the store's latest sample to every connected session on
// each tick. Session membership is the hub's only per-client state.
type Hub struct {
	store    *store.Store
	clock    timeutil.Clock
	interval time.Duration
	metrics  *metrics.Collector

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// session is one connected consumer. done closes exactly once when the
// session leaves the active set, whichever exit path triggered it.
type session struct {
	id        uuid.UUID
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Hub reading from st and broadcasting at hz ticks per
// second. A nil clock uses the real wall clock; metrics may be nil.
func New(st *store.Store, hz int, clock timeutil.Clock, m *metrics.Collector) *Hub {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if hz <= 0 {
		hz = 60
	}
	return &Hub{
		store:    st,
		clock:    clock,
		interval: time.Second / time.Duration(hz),
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// consumers are browsers on arbitrary origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[uuid.UUID]*session),
	}
}

// HandleOrientation upgrades the request and serves the session until it
// disconnects or the hub drops it. Client-to-server messages are read only
// to detect closure and are otherwise discarded.
func (h *Hub) HandleOrientation(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return
	}

	s := &session{id: uuid.New(), conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[s.id] = s
	count := len(h.sessions)
	h.mu.Unlock()
	h.setClientGauge(count)
	monitoring.Logf("client connected from %s (%d total)", r.RemoteAddr, count)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(s)
				return
			}
		}
	}()

	select {
	case <-s.done:
	case <-r.Context().Done():
		h.remove(s)
	}
}

// Run drives the broadcast ticks until the context is cancelled, then
// closes every remaining session.
func (h *Hub) Run(ctx context.Context) error {
	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()
	defer h.closeAll()

	monitoring.Logf("broadcast loop started at %v per tick", h.interval)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("broadcast loop stopping")
			return ctx.Err()
		case <-ticker.C():
			h.broadcast()
		}
	}
}

// broadcast writes the current sample to every session. An empty store
// skips the tick entirely; a failed write removes only that session.
func (h *Hub) broadcast() {
	latest := h.store.Latest()
	if latest == nil {
		return
	}

	data, err := json.Marshal(latest)
	if err != nil {
		monitoring.Logf("failed to marshal sample: %v", err)
		return
	}

	h.mu.Lock()
	targets := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			monitoring.Logf("dropping client %s: %v", s.id, err)
			if h.metrics != nil {
				h.metrics.SendFailures.Inc()
			}
			h.remove(s)
			continue
		}
		if h.metrics != nil {
			h.metrics.FramesSent.Inc()
		}
	}
}

// remove takes a session out of the active set, releasing its connection.
// It is idempotent and shared by every exit path: peer close, read error,
// send failure, and hub shutdown.
func (h *Hub) remove(s *session) {
	h.mu.Lock()
	_, present := h.sessions[s.id]
	delete(h.sessions, s.id)
	count := len(h.sessions)
	h.mu.Unlock()

	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})

	if present {
		h.setClientGauge(count)
		monitoring.Logf("client %s removed (%d remaining)", s.id, count)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	targets := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		h.remove(s)
	}
}

// ClientCount reports the size of the active session set.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) setClientGauge(n int) {
	if h.metrics != nil {
		h.metrics.ClientsConnected.Set(float64(n))
	}
}
