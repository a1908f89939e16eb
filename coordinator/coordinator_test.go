package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	fractal "github.com/marben/progressive_fractal"
)

var testReq = fractal.Request{
	Viewport:      fractal.Viewport{CenterX: -0.5, Scale: 3, PixelWidth: 8, PixelHeight: 8},
	Selector:      fractal.SelectMandelbrot,
	MaxIterations: 200,
}

// scriptedRenderer emits frames snapshots numbered by Pass. The first call
// waits for gate (if set) before emitting. Request failID ends with failErr.
type scriptedRenderer struct {
	gate    chan struct{}
	frames  int
	failID  uint64
	failErr error
	calls   atomic.Int32
}

func (r *scriptedRenderer) Render(ctx context.Context, req fractal.Request, emit func(fractal.Snapshot) error) error {
	if r.calls.Add(1) == 1 && r.gate != nil {
		<-r.gate
	}
	for i := range r.frames {
		if err := emit(fractal.Snapshot{ID: req.ID, Pass: i, Final: i == r.frames-1}); err != nil {
			return err
		}
	}
	if req.ID == r.failID {
		return r.failErr
	}
	return nil
}

type recorder struct {
	snaps chan fractal.Snapshot
}

func newRecorder() *recorder {
	return &recorder{snaps: make(chan fractal.Snapshot, 256)}
}

func (r *recorder) onSnapshot(s fractal.Snapshot) {
	r.snaps <- s
}

// untilFinal collects snapshots until one with the given id is final.
func (r *recorder) untilFinal(t *testing.T, id uint64) []fractal.Snapshot {
	t.Helper()
	var got []fractal.Snapshot
	timeout := time.After(10 * time.Second)
	for {
		select {
		case s := <-r.snaps:
			got = append(got, s)
			if s.ID == id && s.Final {
				return got
			}
		case <-timeout:
			t.Fatalf("no final snapshot for %d, got %d snapshots", id, len(got))
		}
	}
}

func TestSubmitAssignsIncreasingIDs(t *testing.T) {
	rec := newRecorder()
	c := New(&scriptedRenderer{frames: 1}, rec.onSnapshot)
	defer c.Close()

	var last uint64
	for i := 0; i < 5; i++ {
		id, err := c.Submit(testReq)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if id <= last {
			t.Fatalf("Submit() id = %d after %d", id, last)
		}
		last = id
	}
	if c.Latest() != last {
		t.Fatalf("Latest() = %d, want %d", c.Latest(), last)
	}
	rec.untilFinal(t, last)
}

func TestSnapshotsDeliveredInOrder(t *testing.T) {
	rec := newRecorder()
	c := New(&scriptedRenderer{frames: 20}, rec.onSnapshot, WithQueueDepth(1))
	defer c.Close()

	id, err := c.Submit(testReq)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	got := rec.untilFinal(t, id)
	if len(got) != 20 {
		t.Fatalf("got %d snapshots, want 20", len(got))
	}
	for i, s := range got {
		if s.Pass != i || s.ID != id {
			t.Fatalf("snapshot %d = id %d pass %d, want id %d pass %d", i, s.ID, s.Pass, id, i)
		}
	}
}

func TestStaleSnapshotsAreDropped(t *testing.T) {
	for _, preempt := range []bool{true, false} {
		rec := newRecorder()
		r := &scriptedRenderer{gate: make(chan struct{}), frames: 5}
		c := New(r, rec.onSnapshot, WithPreemption(preempt))

		id1, _ := c.Submit(testReq)
		id2, _ := c.Submit(testReq)
		close(r.gate)

		for _, s := range rec.untilFinal(t, id2) {
			if s.ID == id1 {
				t.Fatalf("preempt=%v: delivered snapshot of superseded request %d", preempt, id1)
			}
		}
		c.Close()
	}
}

func TestPreemptionCancelsRender(t *testing.T) {
	cancelled := make(chan struct{})
	var calls atomic.Int32
	r := rendererFunc(func(ctx context.Context, req fractal.Request, emit func(fractal.Snapshot) error) error {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		}
		return emit(fractal.Snapshot{ID: req.ID, Final: true})
	})

	rec := newRecorder()
	c := New(r, rec.onSnapshot)
	defer c.Close()

	c.Submit(testReq)
	// Wait until the first render is running before superseding it.
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	id2, _ := c.Submit(testReq)

	select {
	case <-cancelled:
	case <-time.After(10 * time.Second):
		t.Fatalf("first render was not cancelled")
	}
	rec.untilFinal(t, id2)
}

func TestFailureReported(t *testing.T) {
	boom := errors.New("boom")
	failures := make(chan uint64, 4)
	rec := newRecorder()
	c := New(&scriptedRenderer{failID: 1, failErr: boom}, rec.onSnapshot,
		WithFailureHandler(func(id uint64, err error) {
			if !errors.Is(err, boom) {
				t.Errorf("failure error = %v, want %v", err, boom)
			}
			failures <- id
		}),
	)
	defer c.Close()

	id, _ := c.Submit(testReq)
	select {
	case got := <-failures:
		if got != id {
			t.Fatalf("failure for %d, want %d", got, id)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("failure not reported")
	}
}

func TestSupersededFailureNotReported(t *testing.T) {
	failures := make(chan uint64, 4)
	rec := newRecorder()
	r := &scriptedRenderer{gate: make(chan struct{}), frames: 1, failID: 1, failErr: errors.New("boom")}
	c := New(r, rec.onSnapshot, WithFailureHandler(func(id uint64, err error) { failures <- id }))
	defer c.Close()

	c.Submit(testReq)
	id2, _ := c.Submit(testReq)
	close(r.gate)
	rec.untilFinal(t, id2)

	select {
	case id := <-failures:
		t.Fatalf("failure reported for superseded request %d", id)
	default:
	}
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	c := New(&scriptedRenderer{}, newRecorder().onSnapshot)
	defer c.Close()

	bad := testReq
	bad.Viewport.PixelWidth = 0
	id, err := c.Submit(bad)
	if !errors.Is(err, fractal.ErrInvalidViewport) || id != 0 {
		t.Fatalf("Submit() = %d, %v, want 0, ErrInvalidViewport", id, err)
	}
	if c.Latest() != 0 {
		t.Fatalf("Latest() = %d after rejected submit", c.Latest())
	}
}

func TestSubmitAfterClose(t *testing.T) {
	c := New(&scriptedRenderer{}, newRecorder().onSnapshot)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := c.Submit(testReq); !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit() error = %v, want ErrClosed", err)
	}
}

type rendererFunc func(ctx context.Context, req fractal.Request, emit func(fractal.Snapshot) error) error

func (f rendererFunc) Render(ctx context.Context, req fractal.Request, emit func(fractal.Snapshot) error) error {
	return f(ctx, req, emit)
}
