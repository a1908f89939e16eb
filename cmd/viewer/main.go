// viewer is a desktop front end: it owns the viewport, turns mouse and keyboard
// input into render requests and paints every snapshot the coordinator delivers.
// Rendering runs in process, or on a render server when -server is given.
//
// Wheel zooms around the cursor, left click zooms in (shift+click zooms out),
// right drag pans, keys 1-4 switch the fractal and R resets the view.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	fractal "github.com/marben/progressive_fractal"
	"github.com/marben/progressive_fractal/coordinator"
	"github.com/marben/progressive_fractal/remote"
	"github.com/marben/progressive_fractal/render"
	"github.com/marben/progressive_fractal/viewport"
)

const (
	screenWidth  = 960
	screenHeight = 640
)

var selectorKeys = []ebiten.Key{ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4}

type game struct {
	ctrl    *viewport.Controller
	initial viewport.State

	mu      sync.Mutex
	frame   *fractal.Snapshot // newest delivered snapshot not yet uploaded
	outerW  int
	outerH  int
	canvas  *ebiten.Image
	panning bool
	lastX   int
	lastY   int
}

func main() {
	var (
		iter     = flag.Int("iter", 500, "Target iteration count.")
		selector = flag.String("fractal", "mandelbrot", "mandelbrot|burningship|julia1|julia2.")
		region   = flag.String("region", "full", "Landmark region to start at.")
		server   = flag.String("server", "", "Websocket address of a render server, e.g. ws://localhost:8080/ws. Renders locally if empty.")
	)
	flag.Parse()

	if err := run(*iter, *selector, *region, *server); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func run(iter int, selector, region, server string) error {
	sel, err := fractal.ParseSelector(selector)
	if err != nil {
		return err
	}
	r, err := fractal.LookupRegion(region)
	if err != nil {
		return err
	}

	g := &game{outerW: screenWidth, outerH: screenHeight}
	sub, closeSub, err := g.submitter(server)
	if err != nil {
		return err
	}
	defer closeSub()

	g.initial = viewport.State{
		Viewport:      r.Viewport(screenWidth, screenHeight),
		Selector:      sel,
		MaxIterations: iter,
	}
	g.ctrl, err = viewport.NewController(g.initial, sub)
	if err != nil {
		return err
	}
	if err := g.ctrl.Redraw(); err != nil {
		return err
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	g.updateTitle()
	return ebiten.RunGame(g)
}

// submitter returns where requests go: a local coordinator, or the render
// server at addr.
func (g *game) submitter(addr string) (fractal.Submitter, func() error, error) {
	if addr == "" {
		coord := coordinator.New(render.New(), g.onSnapshot,
			coordinator.WithFailureHandler(func(id uint64, err error) {
				log.Printf("render %d failed: %v", id, err)
			}),
		)
		return coord, coord.Close, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := remote.Dial(ctx, addr, remote.Sink{
		OnSnapshot: g.onSnapshot,
		OnFailure: func(id uint64, reason string) {
			log.Printf("render %d failed: %s", id, reason)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	log.Printf("rendering on %s", addr)
	return conn, conn.Close, nil
}

// onSnapshot runs on the coordinator's delivery goroutine, or on the
// connection's when rendering remotely. Only the newest snapshot is kept;
// older ones are already painted over.
func (g *game) onSnapshot(s fractal.Snapshot) {
	g.mu.Lock()
	g.frame = &s
	g.mu.Unlock()
}

func (g *game) Update() error {
	g.mu.Lock()
	frame := g.frame
	g.frame = nil
	w, h := g.outerW, g.outerH
	g.mu.Unlock()

	// a minimised window lays out at 0x0; keep the last size until it returns
	if w > 0 && h > 0 {
		if err := g.ctrl.Resize(w, h); err != nil {
			log.Printf("resize: %v", err)
		}
	}
	if err := g.handleInput(); err != nil {
		log.Printf("input: %v", err)
	}

	if frame != nil {
		if g.canvas == nil || g.canvas.Bounds().Dx() != frame.PixelWidth || g.canvas.Bounds().Dy() != frame.PixelHeight {
			if g.canvas != nil {
				g.canvas.Deallocate()
			}
			g.canvas = ebiten.NewImage(frame.PixelWidth, frame.PixelHeight)
		}
		g.canvas.WritePixels(frame.Pix)
	}
	return nil
}

func (g *game) handleInput() error {
	x, y := ebiten.CursorPosition()
	px, py := float64(x), float64(y)

	for i, k := range selectorKeys {
		if inpututil.IsKeyJustPressed(k) {
			if err := g.ctrl.SetSelector(fractal.Selectors[i]); err != nil {
				return err
			}
			g.updateTitle()
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		st := g.ctrl.State()
		reset := g.initial
		reset.Selector = st.Selector
		reset.Resize(st.Viewport.PixelWidth, st.Viewport.PixelHeight)
		return g.ctrl.Reset(reset)
	}

	if _, wy := ebiten.Wheel(); wy != 0 {
		if err := g.ctrl.Wheel(px, py, wy); err != nil {
			return err
		}
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if err := g.ctrl.Click(px, py, ebiten.IsKeyPressed(ebiten.KeyShift)); err != nil {
			return err
		}
	}

	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
		if g.panning {
			if err := g.ctrl.Pan(float64(x-g.lastX), float64(y-g.lastY)); err != nil {
				return err
			}
		}
		g.panning, g.lastX, g.lastY = true, x, y
	} else {
		g.panning = false
	}
	return nil
}

func (g *game) updateTitle() {
	ebiten.SetWindowTitle(fmt.Sprintf("Fractal viewer - %s (1-4 fractal, wheel/click zoom, right drag pan, R reset)", g.ctrl.State().Selector))
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.canvas != nil {
		screen.DrawImage(g.canvas, nil)
	}
}

// Layout renders at the window's size; the resulting resize is applied in Update.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.mu.Lock()
	g.outerW, g.outerH = outsideWidth, outsideHeight
	g.mu.Unlock()
	return outsideWidth, outsideHeight
}
