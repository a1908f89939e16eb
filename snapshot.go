package fractal

import (
	"errors"
	"fmt"
	"image"
)

var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is the state of a render's pixel buffer at a checkpoint.
// Pix is RGBA, row-major, PixelWidth*PixelHeight*4 bytes, and is owned by
// the receiver once delivered.
type Snapshot struct {
	ID          uint64
	PixelWidth  int
	PixelHeight int
	Pass        int // zero based index of the pass that produced the checkpoint
	Passes      int
	Final       bool
	Pix         []byte
}

// Validate checks that Pix holds exactly one RGBA pixel per canvas position.
// Snapshots received from a peer are validated before use.
func (s Snapshot) Validate() error {
	if s.PixelWidth <= 0 || s.PixelHeight <= 0 || s.PixelWidth > MaxPixels/s.PixelHeight {
		return fmt.Errorf("%w: dimensions %dx%d", ErrMalformedSnapshot, s.PixelWidth, s.PixelHeight)
	}
	if want := s.PixelWidth * s.PixelHeight * 4; len(s.Pix) != want {
		return fmt.Errorf("%w: %d pixel bytes, want %d", ErrMalformedSnapshot, len(s.Pix), want)
	}
	if s.Pass < 0 || s.Pass >= s.Passes {
		return fmt.Errorf("%w: pass %d of %d", ErrMalformedSnapshot, s.Pass, s.Passes)
	}
	return nil
}

// Image wraps the snapshot's pixels without copying.
func (s Snapshot) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    s.Pix,
		Stride: 4 * s.PixelWidth,
		Rect:   image.Rect(0, 0, s.PixelWidth, s.PixelHeight),
	}
}
