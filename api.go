package fractal

import (
	"context"
)

// Renderer produces the snapshots of a single render request.
//
// emit is called for every progress checkpoint, in production order. A non-nil
// error returned by emit aborts the render and is returned from Render.
type Renderer interface {
	Render(ctx context.Context, req Request, emit func(Snapshot) error) error
}

// Submitter accepts render requests and returns the id assigned to them.
// The render server exposes it to every connected client over irpc.
type Submitter interface {
	Submit(req Request) (uint64, error)
}

// SnapshotSink is implemented by render clients. The server calls it for every
// snapshot of the client's newest request, and once for each render that failed.
type SnapshotSink interface {
	Deliver(ctx context.Context, s Snapshot) error
	Fail(ctx context.Context, id uint64, reason string) error
}
