// server.go is the websocket render server. Every connection gets its own
// coordinator. Clients submit render requests through the irpc Submitter
// service and the server pushes progressive snapshots to their SnapshotSink.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// main is the entry point for the render server.
func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	var (
		addr    = flag.String("addr", ":8080", "HTTP listen address.")
		static  = flag.String("static", "", "Directory with static web assets served at /.")
		workers = flag.Int("workers", runtime.GOMAXPROCS(0), "Goroutines rendering rows of one chunk.")
		preempt = flag.Bool("preempt", true, "Cancel a render as soon as a newer request arrives.")
		pixels  = flag.Int("max-pixels", 3840*2160, "Largest canvas a client may request, in pixels.")
		maxIter = flag.Int("max-iter", 100_000, "Largest iteration count a client may request.")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newHandler(*static, sessionConfig{
			workers:   *workers,
			preempt:   *preempt,
			maxPixels: *pixels,
			maxIter:   *maxIter,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on http://localhost%s (websocket at /ws)", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpServer: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
