// Package remote connects render clients to the render server. Requests go
// out through the server's Submitter service; the server pushes snapshots back
// by calling the client's SnapshotSink. Both run as irpc services over a
// single websocket.
package remote

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
	"github.com/marben/irpc"
	fractal "github.com/marben/progressive_fractal"
)

// Conn is a connection to a render server. It implements fractal.Submitter,
// so a viewport.Controller can drive a remote server directly.
type Conn struct {
	*fractal.SubmitterIrpcClient
	ep *irpc.Endpoint
}

// Dial connects to the websocket endpoint at url and serves sink to the server.
// ctx bounds the dial only.
func Dial(ctx context.Context, url string, sink fractal.SnapshotSink) (*Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket.Dial: %w", err)
	}

	conn := websocket.NetConn(context.Background(), c, websocket.MessageBinary)
	ep := irpc.NewEndpoint(conn, irpc.WithEndpointServices(fractal.NewSnapshotSinkIrpcService(sink)))

	client, err := fractal.NewSubmitterIrpcClient(ep)
	if err != nil {
		ep.Close()
		return nil, fmt.Errorf("NewSubmitterIrpcClient: %w", err)
	}
	return &Conn{SubmitterIrpcClient: client, ep: ep}, nil
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} {
	return c.ep.Context().Done()
}

// Err reports why the connection ended, nil while it is open.
func (c *Conn) Err() error {
	return context.Cause(c.ep.Context())
}

// Close ends the connection. Once closed, it returns the reason the
// connection ended.
func (c *Conn) Close() error {
	return c.ep.Close()
}

// Sink adapts plain callbacks to fractal.SnapshotSink. Nil callbacks are skipped.
type Sink struct {
	OnSnapshot func(fractal.Snapshot)
	OnFailure  func(id uint64, reason string)
}

func (s Sink) Deliver(ctx context.Context, snap fractal.Snapshot) error {
	if s.OnSnapshot != nil {
		s.OnSnapshot(snap)
	}
	return nil
}

func (s Sink) Fail(ctx context.Context, id uint64, reason string) error {
	if s.OnFailure != nil {
		s.OnFailure(id, reason)
	}
	return nil
}
