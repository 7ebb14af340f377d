package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"

	"github.com/skyframe-data/orientation.relay/internal/monitoring"
	"github.com/skyframe-data/orientation.relay/internal/orientation"
	"github.com/skyframe-data/orientation.relay/internal/store"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

// testHub runs a hub at a fast tick against an httptest server and returns
// a dialer-ready URL.
func testHub(t *testing.T) (*Hub, *store.Store, string) {
	t.Helper()

	st := store.New(nil)
	h := New(st, 200, nil, nil) // 5ms ticks keep the tests quick

	srv := httptest.NewServer(testMux(h))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return h, st, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orientation"
}

func testMux(h *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/orientation", h.HandleOrientation)
	return mux
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) orientation.Sample {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var s orientation.Sample
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

func TestHubBroadcastsLatestSample(t *testing.T) {
	_, st, url := testHub(t)
	conn := dial(t, url)

	st.PublishLive(orientation.NewSample(quat.Number{Real: 1}, 40, time.Now()))

	s := readFrame(t, conn)
	require.Equal(t, [4]float64{1, 0, 0, 0}, s.Q)
	require.Equal(t, 40.0, s.FOVDeg)
}

func TestHubSkipsTicksBeforeFirstSample(t *testing.T) {
	_, _, url := testHub(t)
	conn := dial(t, url)

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("received a frame from an empty store")
	}
}

func TestHubIsolatesFailingSession(t *testing.T) {
	h, st, url := testHub(t)

	healthy := dial(t, url)
	failing := dial(t, url)
	if !waitFor(t, func() bool { return h.ClientCount() == 2 }) {
		t.Fatal("sessions did not register")
	}

	// kill one consumer's transport out from under the hub
	failing.UnderlyingConn().Close()

	st.PublishLive(orientation.NewSample(quat.Number{Real: 1}, 40, time.Now()))

	// the healthy session keeps receiving across many ticks
	for i := 0; i < 5; i++ {
		readFrame(t, healthy)
	}

	if !waitFor(t, func() bool { return h.ClientCount() == 1 }) {
		t.Error("failing session was not removed")
	}
}

func TestHubRemovesClosedClient(t *testing.T) {
	h, _, url := testHub(t)

	conn := dial(t, url)
	if !waitFor(t, func() bool { return h.ClientCount() == 1 }) {
		t.Fatal("session did not register")
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	if !waitFor(t, func() bool { return h.ClientCount() == 0 }) {
		t.Error("closed session was not removed")
	}
}

func TestHubClientMessagesIgnored(t *testing.T) {
	_, st, url := testHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"relay"}`)))

	st.PublishLive(orientation.NewSample(quat.Number{Real: 1}, 40, time.Now()))
	s := readFrame(t, conn)
	require.Equal(t, [4]float64{1, 0, 0, 0}, s.Q)
}

func TestHubShutdownClosesSessions(t *testing.T) {
	st := store.New(nil)
	h := New(st, 200, nil, nil)
	srv := httptest.NewServer(testMux(h))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/orientation")
	if !waitFor(t, func() bool { return h.ClientCount() == 1 }) {
		t.Fatal("session did not register")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if !waitFor(t, func() bool { return h.ClientCount() == 0 }) {
		t.Error("shutdown left sessions registered")
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still alive after hub shutdown")
	}
}
