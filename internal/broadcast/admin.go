package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts operator debugging endpoints under /debug/.
// These are reachable only locally or over Tailscale, never publicly.
func (h *Hub) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// Live tail of the frame sequence consumers see, as Server-Sent Events,
	// so an operator can watch the stream from a terminal or browser without
	// a WebSocket client.
	debug.HandleSilentFunc("orientation-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		// tail at a tenth of the broadcast rate; plenty for a human reader
		ticker := time.NewTicker(10 * h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				latest := h.store.Latest()
				if latest == nil {
					continue
				}
				data, err := json.Marshal(latest)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})
}
