// duocall relay: the signaling server.
//
// Participants connect over WebSocket to /ws (the default room) or
// /ws/{room}. Every frame a participant sends is forwarded unchanged to the
// other members of its room. Prometheus metrics are served on /metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/duocall/internal/config"
	"github.com/1ureka/duocall/internal/relay"
	"github.com/1ureka/duocall/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	listen := flag.String("listen", config.DefaultListenAddr, "Address to listen on")
	origins := flag.String("origins", "", "Comma-separated allowed origins (empty or * allows any)")
	capacity := flag.Int("room-capacity", 0, "Maximum participants per room (0 = unlimited)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Relay{
		ListenAddr:     *listen,
		AllowedOrigins: config.SplitList(*origins),
		RoomCapacity:   *capacity,
		Debug:          *debugMode,
	}
	if cfg.Debug {
		util.EnableDebug()
	}
	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	pterm.Info.Println(fmt.Sprintf("duocall relay v%s", version))
	pterm.Println()

	if err := run(ctx, cfg); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	util.LogInfo("relay stopped")
}

func run(ctx context.Context, cfg config.Relay) error {
	metrics := relay.NewMetrics()
	hub := relay.NewHub(cfg.RoomCapacity, metrics)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           relay.NewServer(cfg, hub, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	util.LogSuccess("listening on %s (ws: /ws, /ws/{room}; metrics: /metrics)", cfg.ListenAddr)
	util.StartStatsReporter(ctx, 10*time.Second, hub.Snapshot)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
