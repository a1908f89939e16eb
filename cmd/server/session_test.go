package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	fractal "github.com/marben/progressive_fractal"
	"github.com/marben/progressive_fractal/remote"
)

type testClient struct {
	conn  *remote.Conn
	snaps chan fractal.Snapshot
	fails chan string
}

func startTestServer(t *testing.T, cfg sessionConfig) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newHandler("", cfg))
	t.Cleanup(srv.Close)
	return srv
}

func dialTestServer(t *testing.T, srv *httptest.Server) *testClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tc := &testClient{
		snaps: make(chan fractal.Snapshot, 256),
		fails: make(chan string, 16),
	}
	sink := remote.Sink{
		OnSnapshot: func(s fractal.Snapshot) { tc.snaps <- s },
		OnFailure:  func(id uint64, reason string) { tc.fails <- reason },
	}
	conn, err := remote.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", sink)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	tc.conn = conn
	return tc
}

func (tc *testClient) awaitFinal(t *testing.T) (fractal.Snapshot, int) {
	t.Helper()
	timeout := time.After(30 * time.Second)
	partials, lastPass := 0, 0
	for {
		select {
		case snap := <-tc.snaps:
			if snap.Pass < lastPass {
				t.Fatalf("pass went back from %d to %d", lastPass, snap.Pass)
			}
			lastPass = snap.Pass
			if snap.Final {
				return snap, partials
			}
			partials++
		case reason := <-tc.fails:
			t.Fatalf("render failed: %s", reason)
		case <-tc.conn.Done():
			t.Fatalf("connection ended: %v", tc.conn.Err())
		case <-timeout:
			t.Fatalf("no final snapshot after %d partials", partials)
		}
	}
}

func testSessionConfig() sessionConfig {
	return sessionConfig{workers: 2, preempt: true}
}

func TestSessionStreamsSnapshotsUntilFinal(t *testing.T) {
	tc := dialTestServer(t, startTestServer(t, testSessionConfig()))

	req := fractal.Request{
		Viewport:      fractal.Viewport{CenterX: -0.5, CenterY: 0, Scale: 3, PixelWidth: 40, PixelHeight: 30},
		Selector:      fractal.SelectMandelbrot,
		MaxIterations: 200,
	}
	id, err := tc.conn.Submit(req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != 1 {
		t.Fatalf("Submit() id = %d, want 1", id)
	}

	final, partials := tc.awaitFinal(t)
	if final.ID != 1 {
		t.Fatalf("final.ID = %d, want 1", final.ID)
	}
	if final.PixelWidth != 40 || final.PixelHeight != 30 || final.Passes != 3 {
		t.Fatalf("final = %dx%d with %d passes, want 40x30 with 3", final.PixelWidth, final.PixelHeight, final.Passes)
	}
	// 30 rows in chunks of 4 is 8 chunks per pass.
	if partials != 3*8 {
		t.Fatalf("partial snapshots = %d, want %d", partials, 3*8)
	}
	off := (15*40 + 20) * 4
	if got := final.Pix[off : off+4]; got[0] != 0 || got[1] != 0 || got[2] != 0 || got[3] != 255 {
		t.Fatalf("centre pixel = %v, want opaque black", got)
	}
}

func TestSessionRejectsInvalidRequests(t *testing.T) {
	cfg := testSessionConfig()
	cfg.maxPixels = 64 * 64
	cfg.maxIter = 1000
	tc := dialTestServer(t, startTestServer(t, cfg))

	valid := fractal.Request{
		Viewport:      fractal.Viewport{Scale: 3, PixelWidth: 8, PixelHeight: 8},
		Selector:      fractal.SelectJulia1,
		MaxIterations: 50,
	}
	tests := []struct {
		name   string
		change func(*fractal.Request)
		want   string
	}{
		{"zero scale", func(r *fractal.Request) { r.Viewport.Scale = 0 }, "invalid viewport"},
		{"unknown selector", func(r *fractal.Request) { r.Selector = fractal.Selector{Kind: 9} }, "unknown fractal selector"},
		{"overflowing canvas", func(r *fractal.Request) { r.Viewport.PixelWidth, r.Viewport.PixelHeight = 1<<31, 1<<31 }, "invalid viewport"},
		{"over server pixel limit", func(r *fractal.Request) { r.Viewport.PixelWidth, r.Viewport.PixelHeight = 65, 64 }, "invalid viewport"},
		{"over server iteration limit", func(r *fractal.Request) { r.MaxIterations = 1001 }, "invalid iteration count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.change(&req)
			id, err := tc.conn.Submit(req)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Submit() = %d, %v, want error containing %q", id, err, tt.want)
			}
		})
	}

	// rejected requests take no id and leave the session usable
	id, err := tc.conn.Submit(valid)
	if err != nil {
		t.Fatalf("Submit(valid) error = %v", err)
	}
	if id != 1 {
		t.Fatalf("Submit(valid) id = %d, want 1", id)
	}
	if final, _ := tc.awaitFinal(t); final.ID != id {
		t.Fatalf("final.ID = %d, want %d", final.ID, id)
	}
}

func TestSessionConfigCheck(t *testing.T) {
	cfg := sessionConfig{maxPixels: 100, maxIter: 10}
	req := fractal.Request{
		Viewport:      fractal.Viewport{Scale: 1, PixelWidth: 10, PixelHeight: 10},
		Selector:      fractal.SelectMandelbrot,
		MaxIterations: 10,
	}
	if err := cfg.check(req); err != nil {
		t.Fatalf("check() at the limits error = %v", err)
	}
	if err := (sessionConfig{}).check(req); err != nil {
		t.Fatalf("check() without limits error = %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := startTestServer(t, testSessionConfig())
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("GET /health = %d %q, want 200 \"ok\"", resp.StatusCode, body)
	}
}
