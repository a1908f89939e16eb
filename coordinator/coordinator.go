// Package coordinator runs renders on a worker goroutine and forwards only the
// snapshots of the most recently submitted request.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	fractal "github.com/marben/progressive_fractal"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("coordinator closed")

// errStale aborts a render that has been superseded.
var errStale = errors.New("render superseded")

type job struct {
	req    fractal.Request
	ctx    context.Context
	cancel context.CancelFunc
}

// delivery is a message from the worker to the delivery goroutine.
// Exactly one of snap and err is meaningful.
type delivery struct {
	id   uint64
	snap fractal.Snapshot
	err  error
}

// Coordinator owns one worker goroutine running a fractal.Renderer and one
// delivery goroutine calling the snapshot callback. The two communicate over a
// bounded channel, so snapshots of a request arrive in production order.
type Coordinator struct {
	renderer   fractal.Renderer
	onSnapshot func(fractal.Snapshot)
	onFailure  func(id uint64, err error)
	preempt    bool
	queueDepth int

	latest atomic.Uint64

	mu      sync.Mutex
	nextID  uint64
	pending *job
	current *job
	closed  bool

	wake chan struct{}
	out  chan delivery

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithPreemption controls whether submitting a request cancels the render in
// flight. Without it the old render runs to completion and its output is dropped.
func WithPreemption(enable bool) Option {
	return func(c *Coordinator) {
		c.preempt = enable
	}
}

// WithFailureHandler sets the callback for renders that end with an error.
// It is called at most once per id and never for superseded requests.
func WithFailureHandler(fn func(id uint64, err error)) Option {
	return func(c *Coordinator) {
		c.onFailure = fn
	}
}

// WithQueueDepth sets how many snapshots may wait for delivery.
func WithQueueDepth(n int) Option {
	return func(c *Coordinator) {
		c.queueDepth = n
	}
}

// New starts a coordinator. onSnapshot is called from a single goroutine.
func New(r fractal.Renderer, onSnapshot func(fractal.Snapshot), opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		renderer:   r,
		onSnapshot: onSnapshot,
		preempt:    true,
		queueDepth: 4,
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.out = make(chan delivery, max(c.queueDepth, 0))

	go c.work()
	go c.deliver()
	return c
}

// Submit assigns req the next id and schedules it, superseding every earlier
// request. It never waits for rendering.
func (c *Coordinator) Submit(req fractal.Request) (uint64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	c.nextID++
	req.ID = c.nextID
	c.latest.Store(req.ID)

	if c.pending != nil {
		c.pending.cancel()
	}
	if c.preempt && c.current != nil {
		c.current.cancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.pending = &job{req: req, ctx: ctx, cancel: cancel}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return req.ID, nil
}

// Latest returns the id of the newest submitted request, 0 before the first.
func (c *Coordinator) Latest() uint64 {
	return c.latest.Load()
}

// Close stops the worker and waits until no callback is running.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	<-c.done
	return nil
}

func (c *Coordinator) stale(id uint64) bool {
	return id != c.latest.Load()
}

func (c *Coordinator) work() {
	defer close(c.out)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.wake:
		}

		for {
			c.mu.Lock()
			j := c.pending
			c.pending = nil
			c.current = j
			c.mu.Unlock()

			if j == nil {
				break
			}
			c.run(j)
		}
	}
}

func (c *Coordinator) run(j *job) {
	defer j.cancel()
	id := j.req.ID

	err := c.renderer.Render(j.ctx, j.req, func(s fractal.Snapshot) error {
		if c.preempt && c.stale(id) {
			return errStale
		}
		s.ID = id
		return c.send(j.ctx, delivery{id: id, snap: s})
	})

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	if err == nil || errors.Is(err, errStale) || j.ctx.Err() != nil {
		return
	}
	_ = c.send(c.ctx, delivery{id: id, err: err})
}

func (c *Coordinator) send(ctx context.Context, d delivery) error {
	select {
	case c.out <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) deliver() {
	defer close(c.done)

	for d := range c.out {
		if c.ctx.Err() != nil || c.stale(d.id) {
			continue
		}
		if d.err != nil {
			if c.onFailure != nil {
				c.onFailure(d.id, d.err)
			}
			continue
		}
		c.onSnapshot(d.snap)
	}
}
