// Package render drives the pass planner, the escape-time evaluators and the
// colour mapper over a pixel buffer, emitting a snapshot after every row chunk.
package render

import (
	"context"
	"fmt"
	"runtime"

	fractal "github.com/marben/progressive_fractal"
	"golang.org/x/sync/errgroup"
)

// Engine renders requests progressively. The zero value renders sequentially
// with the default chunk height.
type Engine struct {
	workers   int
	chunkRows int

	// OnChunk, if set, is called after each chunk with its row range.
	OnChunk func(pass, rowStart, rowEnd int)
}

var _ fractal.Renderer = (*Engine)(nil)

// Option configures the Engine.
type Option func(*Engine)

// WithWorkers spreads the sampled rows of a chunk over n goroutines.
// The output does not depend on n.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithChunkRows fixes the chunk height instead of deriving it from the image height.
func WithChunkRows(rows int) Option {
	return func(e *Engine) {
		e.chunkRows = rows
	}
}

// New creates an Engine using all available CPUs.
func New(opts ...Option) *Engine {
	e := &Engine{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChunkRows is the default chunk height: about 50 chunks per image, never
// fewer than 4 rows.
func ChunkRows(pixelHeight int) int {
	return max(4, pixelHeight/50)
}

// Render runs every pass of req's plan over a single buffer and calls emit
// after each chunk and once more with the final image. Snapshots carry a copy
// of the buffer, so emit may keep them.
func (e *Engine) Render(ctx context.Context, req fractal.Request, emit func(fractal.Snapshot) error) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("render %d: %w", req.ID, err)
	}

	vp := req.Viewport
	w, h := vp.PixelWidth, vp.PixelHeight
	buf := make([]byte, w*h*4)
	plan := fractal.Plan(req.MaxIterations)

	chunk := e.chunkRows
	if chunk <= 0 {
		chunk = ChunkRows(h)
	}

	snapshot := func(pass int, final bool) fractal.Snapshot {
		pix := make([]byte, len(buf))
		copy(pix, buf)
		return fractal.Snapshot{
			ID:          req.ID,
			PixelWidth:  w,
			PixelHeight: h,
			Pass:        pass,
			Passes:      len(plan),
			Final:       final,
			Pix:         pix,
		}
	}

	for passIdx, pass := range plan {
		for rowStart := 0; rowStart < h; rowStart += chunk {
			if err := ctx.Err(); err != nil {
				return err
			}
			rowEnd := min(rowStart+chunk, h)
			if err := e.renderChunk(ctx, req, pass, rowStart, rowEnd, buf); err != nil {
				return err
			}
			if e.OnChunk != nil {
				e.OnChunk(passIdx, rowStart, rowEnd)
			}
			if err := emit(snapshot(passIdx, false)); err != nil {
				return err
			}
		}
	}

	return emit(snapshot(len(plan)-1, true))
}

// renderChunk paints the sampled rows of [rowStart, rowEnd). Sample rows are
// the multiples of the stride; each writes the block below it, clipped at the
// image edges, so rows never overlap between samples. Rows not yet started
// when ctx ends are skipped.
func (e *Engine) renderChunk(ctx context.Context, req fractal.Request, pass fractal.Pass, rowStart, rowEnd int, buf []byte) error {
	stride := pass.Stride
	first := (rowStart + stride - 1) / stride * stride

	if e.workers <= 1 {
		for y := first; y < rowEnd; y += stride {
			if err := ctx.Err(); err != nil {
				return err
			}
			renderRow(req, pass, y, buf)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for y := first; y < rowEnd; y += stride {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			renderRow(req, pass, y, buf)
			return nil
		})
	}
	return g.Wait()
}

func renderRow(req fractal.Request, pass fractal.Pass, y int, buf []byte) {
	vp := req.Viewport
	w, h := vp.PixelWidth, vp.PixelHeight
	stride := pass.Stride
	blockH := min(stride, h-y)

	for x := 0; x < w; x += stride {
		re, im := fractal.ToComplex(float64(x), float64(y), vp)
		n := fractal.Iterate(req.Selector, re, im, pass.IterationCap)
		c := fractal.ColorOf(n, pass.IterationCap)

		blockW := min(stride, w-x)
		for by := 0; by < blockH; by++ {
			off := ((y+by)*w + x) * 4
			for bx := 0; bx < blockW; bx++ {
				i := off + bx*4
				buf[i], buf[i+1], buf[i+2], buf[i+3] = c.R, c.G, c.B, c.A
			}
		}
	}
}
