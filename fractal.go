// Package fractal holds the building blocks of the progressive escape-time renderer:
// viewport mapping, the iteration formulas, colouring and the pass schedule.
package fractal

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidViewport   = errors.New("invalid viewport")
	ErrInvalidIterations = errors.New("invalid iteration count")
)

// Hard limits of a single request. A canvas of MaxPixels needs a 256 MiB
// buffer, so w*h*4 always fits an int.
const (
	MaxPixels        = 1 << 26
	MaxIterationsCap = 1 << 24
)

// Viewport is the window into the complex plane shown on the canvas.
// Scale is the width of the plane spanned by the canvas width.
type Viewport struct {
	CenterX     float64
	CenterY     float64
	Scale       float64
	PixelWidth  int
	PixelHeight int
}

// Validate reports whether the viewport can be rendered: a finite centre and
// scale > 0 on a non-empty canvas of at most MaxPixels.
func (v Viewport) Validate() error {
	if !(v.Scale > 0) || math.IsInf(v.Scale, 0) {
		return fmt.Errorf("%w: scale %v must be positive and finite", ErrInvalidViewport, v.Scale)
	}
	if !finite(v.CenterX) || !finite(v.CenterY) {
		return fmt.Errorf("%w: centre (%v, %v) is not finite", ErrInvalidViewport, v.CenterX, v.CenterY)
	}
	if v.PixelWidth <= 0 || v.PixelHeight <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidViewport, v.PixelWidth, v.PixelHeight)
	}
	if v.PixelWidth > MaxPixels/v.PixelHeight {
		return fmt.Errorf("%w: dimensions %dx%d exceed %d pixels", ErrInvalidViewport, v.PixelWidth, v.PixelHeight, MaxPixels)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Request is one redraw. ID is assigned by the coordinator and is only
// used to tell stale output apart from current output.
type Request struct {
	ID            uint64
	Viewport      Viewport
	Selector      Selector
	MaxIterations int
}

// Validate checks the viewport, the selector and that MaxIterations is in
// (0, MaxIterationsCap].
func (r Request) Validate() error {
	if err := r.Viewport.Validate(); err != nil {
		return err
	}
	if r.MaxIterations <= 0 || r.MaxIterations > MaxIterationsCap {
		return fmt.Errorf("%w: %d", ErrInvalidIterations, r.MaxIterations)
	}
	return r.Selector.Validate()
}
