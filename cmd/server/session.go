package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/marben/irpc"
	fractal "github.com/marben/progressive_fractal"
	"github.com/marben/progressive_fractal/coordinator"
	"github.com/marben/progressive_fractal/render"
)

type sessionConfig struct {
	workers   int
	preempt   bool
	maxPixels int // per request, 0 means fractal.MaxPixels
	maxIter   int // per request, 0 means fractal.MaxIterationsCap
}

// check applies the server's own limits on top of request validation.
func (c sessionConfig) check(req fractal.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	v := req.Viewport
	if c.maxPixels > 0 && v.PixelWidth*v.PixelHeight > c.maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds the server limit of %d pixels", fractal.ErrInvalidViewport, v.PixelWidth, v.PixelHeight, c.maxPixels)
	}
	if c.maxIter > 0 && req.MaxIterations > c.maxIter {
		return fmt.Errorf("%w: %d exceeds the server limit of %d", fractal.ErrInvalidIterations, req.MaxIterations, c.maxIter)
	}
	return nil
}

// session serves one client. The client calls Submit through irpc; the
// session's coordinator pushes the resulting snapshots back through the
// client's SnapshotSink.
type session struct {
	cfg   sessionConfig
	ctx   context.Context // the endpoint's lifetime
	coord *coordinator.Coordinator
	sink  fractal.SnapshotSink
	ready chan struct{} // closed once coord and sink are set

	finished int // touched by the delivery goroutine only
}

var _ fractal.Submitter = (*session)(nil)

// serveSession runs the irpc endpoint on conn until the client leaves or ctx ends.
func serveSession(ctx context.Context, conn net.Conn, cfg sessionConfig) error {
	s := &session{cfg: cfg, ready: make(chan struct{})}

	// Submit calls may arrive as soon as the endpoint runs; they wait on ready.
	ep := irpc.NewEndpoint(conn,
		irpc.WithEndpointServices(fractal.NewSubmitterIrpcService(s)),
		irpc.WithLocalAddress(conn.LocalAddr()),
		irpc.WithRemoteAddress(conn.RemoteAddr()),
	)
	sink, err := fractal.NewSnapshotSinkIrpcClient(ep)
	if err != nil {
		ep.Close()
		return fmt.Errorf("NewSnapshotSinkIrpcClient: %w", err)
	}

	s.ctx = ep.Context()
	s.sink = sink
	s.coord = coordinator.New(render.New(render.WithWorkers(cfg.workers)), s.deliver,
		coordinator.WithPreemption(cfg.preempt),
		coordinator.WithFailureHandler(s.fail),
	)
	close(s.ready)

	select {
	case <-ctx.Done():
	case <-ep.Context().Done():
	}

	// closing the endpoint first unblocks a delivery waiting on the client
	ep.Close()
	s.coord.Close()

	cause := context.Cause(ep.Context())
	if ctx.Err() != nil || errors.Is(cause, irpc.ErrEndpointClosedByCounterpart) {
		return nil
	}
	return cause
}

// Submit implements fractal.Submitter for the remote client.
func (s *session) Submit(req fractal.Request) (uint64, error) {
	<-s.ready
	if err := s.cfg.check(req); err != nil {
		log.Printf("rejected request: %v", err)
		return 0, err
	}
	id, err := s.coord.Submit(req)
	if err != nil {
		return 0, err
	}
	log.Printf("render %d accepted: %s %dx%d, %d iterations", id, req.Selector, req.Viewport.PixelWidth, req.Viewport.PixelHeight, req.MaxIterations)
	return id, nil
}

func (s *session) deliver(snap fractal.Snapshot) {
	if err := s.sink.Deliver(s.ctx, snap); err != nil {
		log.Printf("deliver %d: %v", snap.ID, err)
		return
	}
	if snap.Final {
		s.finished++
		log.Printf("render %d finished (%d this session)", snap.ID, s.finished)
	}
}

func (s *session) fail(id uint64, err error) {
	log.Printf("render %d failed: %v", id, err)
	if err := s.sink.Fail(s.ctx, id, err.Error()); err != nil {
		log.Printf("report failure %d: %v", id, err)
	}
}
