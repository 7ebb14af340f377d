// Command relay receives orientation telemetry over UDP and rebroadcasts it
// to WebSocket consumers at a fixed cadence, generating synthetic data until
// a live source appears.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/skyframe-data/orientation.relay/internal/api"
	"github.com/skyframe-data/orientation.relay/internal/broadcast"
	"github.com/skyframe-data/orientation.relay/internal/config"
	"github.com/skyframe-data/orientation.relay/internal/ingest"
	"github.com/skyframe-data/orientation.relay/internal/metrics"
	"github.com/skyframe-data/orientation.relay/internal/store"
	"github.com/skyframe-data/orientation.relay/internal/synth"
	"github.com/skyframe-data/orientation.relay/internal/version"
)

var (
	listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
	udpListen  = flag.String("udp", "", "UDP listen address for sensor datagrams (overrides config)")
	configPath = flag.String("config", "", "Path to relay config JSON")
	pcapFile   = flag.String("pcap", "", "Replay datagrams from a pcap capture instead of the live socket")
)

func main() {
	flag.Parse()

	settings := config.Defaults()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg.Apply(&settings)
	}
	if *listen != "" {
		settings.HTTPListen = *listen
	}
	if *udpListen != "" {
		settings.UDPListen = *udpListen
	}

	st := store.New(nil)

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	hub := broadcast.New(st, settings.BroadcastHz, nil, collector)
	generator := synth.New(st, settings.Synthetic, settings.BroadcastHz, nil)
	listener := ingest.NewListener(ingest.Config{
		Addr:    settings.UDPListen,
		RcvBuf:  settings.UDPReceiveBuffer,
		Store:   st,
		Metrics: collector,
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ingestion: pcap replay in dev, live socket otherwise. Losing the UDP
	// socket is not fatal: the relay keeps serving synthetic data and says so.
	udpBound := false
	if *pcapFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.ReplayPCAP(ctx, *pcapFile, udpPort(settings.UDPListen)); err != nil && err != context.Canceled {
				log.Printf("pcap replay failed: %v", err)
			}
			log.Print("pcap replay routine terminated")
		}()
	} else if err := listener.Listen(); err != nil {
		log.Printf("WARNING: %v; continuing in synthetic-only mode", err)
	} else {
		udpBound = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Serve(ctx); err != nil && err != context.Canceled {
				log.Printf("UDP listener failed: %v", err)
			}
			log.Print("ingest routine terminated")
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := generator.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("synthetic generator failed: %v", err)
		}
		log.Print("generator routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hub.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("broadcast loop failed: %v", err)
		}
		log.Print("broadcast routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(st, hub, collector, udpPort(settings.UDPListen)).ServeMux()
		hub.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    settings.HTTPListen,
			Handler: api.LoggingMiddleware(api.CORSMiddleware(mux)),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	printBanner(settings, udpBound)

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// udpPort extracts the numeric port from a listen address for display and
// pcap filtering.
func udpPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

// localIP guesses the LAN address for the banner by opening a throwaway
// outbound UDP socket; nothing is actually sent.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func printBanner(settings config.Settings, udpBound bool) {
	log.Printf("orientation relay %s (%s) started", version.Version, version.GitSHA)
	log.Printf("  websocket: ws://%s/ws/orientation", hostport(settings.HTTPListen))
	if _, port, err := net.SplitHostPort(settings.HTTPListen); err == nil {
		log.Printf("  websocket (LAN): ws://%s/ws/orientation", net.JoinHostPort(localIP(), port))
	}
	if udpBound {
		log.Printf("  udp ingest: %s", settings.UDPListen)
	} else {
		log.Printf("  udp ingest: DISABLED (synthetic data only)")
	}
	log.Printf("  status: http://%s/status", hostport(settings.HTTPListen))
}

func hostport(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
