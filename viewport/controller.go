// Package viewport turns user gestures into viewport changes and re-issues
// render requests for them.
package viewport

import (
	"fmt"

	fractal "github.com/marben/progressive_fractal"
)

// ZoomFactor is the multiplicative scale change of one zoom step.
const ZoomFactor = fractal.Phi

// State is everything the controller needs to build a render request.
type State struct {
	Viewport      fractal.Viewport
	Selector      fractal.Selector
	MaxIterations int
}

// Request builds a render request for the current state. The id is left for
// the coordinator to assign.
func (s State) Request() fractal.Request {
	return fractal.Request{
		Viewport:      s.Viewport,
		Selector:      s.Selector,
		MaxIterations: s.MaxIterations,
	}
}

// ZoomAt zooms in or out by ZoomFactor keeping the plane point under pixel
// (px, py) fixed.
func (s *State) ZoomAt(px, py float64, in bool) {
	before := s.Viewport
	if in {
		s.Viewport.Scale /= ZoomFactor
	} else {
		s.Viewport.Scale *= ZoomFactor
	}
	oldRe, oldIm := fractal.ToComplex(px, py, before)
	newRe, newIm := fractal.ToComplex(px, py, s.Viewport)
	s.Viewport.CenterX += oldRe - newRe
	s.Viewport.CenterY += oldIm - newIm
}

// Click zooms in at the click point, or out when the modifier is held.
func (s *State) Click(px, py float64, modifier bool) {
	s.ZoomAt(px, py, !modifier)
}

// Pan shifts the view so the content moves by (dx, dy) pixels.
func (s *State) Pan(dx, dy float64) {
	v := s.Viewport
	s.Viewport.CenterX -= dx / float64(v.PixelWidth) * v.Scale
	s.Viewport.CenterY -= dy / float64(v.PixelHeight) * v.Scale * float64(v.PixelHeight) / float64(v.PixelWidth)
}

// Resize changes the canvas size and keeps centre and scale.
func (s *State) Resize(w, h int) {
	s.Viewport.PixelWidth = w
	s.Viewport.PixelHeight = h
}

// Controller applies gestures to its State and submits a fresh request after
// each change.
type Controller struct {
	state     State
	submitter fractal.Submitter
	lastID    uint64
}

// NewController validates the initial state. Nothing is rendered until the
// first Redraw.
func NewController(s State, sub fractal.Submitter) (*Controller, error) {
	if err := s.Request().Validate(); err != nil {
		return nil, fmt.Errorf("initial viewport: %w", err)
	}
	return &Controller{state: s, submitter: sub}, nil
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

// LastID is the id of the most recently submitted request.
func (c *Controller) LastID() uint64 {
	return c.lastID
}

// Redraw submits the current state.
func (c *Controller) Redraw() error {
	id, err := c.submitter.Submit(c.state.Request())
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	c.lastID = id
	return nil
}

// Reset replaces the whole state, e.g. to return to the start view.
func (c *Controller) Reset(s State) error {
	if err := s.Request().Validate(); err != nil {
		return err
	}
	c.state = s
	return c.Redraw()
}

// Wheel zooms in for a positive delta and out for a negative one.
func (c *Controller) Wheel(px, py, delta float64) error {
	if delta == 0 {
		return nil
	}
	return c.apply(func(s *State) { s.ZoomAt(px, py, delta > 0) })
}

// Click zooms in at (px, py), or out when modifier is held.
func (c *Controller) Click(px, py float64, modifier bool) error {
	return c.apply(func(s *State) { s.Click(px, py, modifier) })
}

// Pan drags the view by (dx, dy) pixels.
func (c *Controller) Pan(dx, dy float64) error {
	if dx == 0 && dy == 0 {
		return nil
	}
	return c.apply(func(s *State) { s.Pan(dx, dy) })
}

// Resize re-renders only when the size actually changed. An empty canvas,
// as reported for a minimised window, is rejected and leaves the state alone.
func (c *Controller) Resize(w, h int) error {
	if w == c.state.Viewport.PixelWidth && h == c.state.Viewport.PixelHeight {
		return nil
	}
	return c.apply(func(s *State) { s.Resize(w, h) })
}

// SetSelector switches the fractal and keeps the viewport.
func (c *Controller) SetSelector(sel fractal.Selector) error {
	if sel == c.state.Selector {
		return nil
	}
	return c.apply(func(s *State) { s.Selector = sel })
}

// apply runs change on a copy of the state and commits the copy only if it
// still describes a renderable request.
func (c *Controller) apply(change func(*State)) error {
	next := c.state
	change(&next)
	if err := next.Request().Validate(); err != nil {
		return err
	}
	c.state = next
	return c.Redraw()
}
