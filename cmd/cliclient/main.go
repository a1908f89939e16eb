// cliclient is a CLI client for the progressive fractal server.
// It submits a single render request, follows the progressive snapshots and saves the final image as PNG.

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"time"

	fractal "github.com/marben/progressive_fractal"
	"github.com/marben/progressive_fractal/remote"
	xdraw "golang.org/x/image/draw"
)

type options struct {
	addr     string
	region   string
	selector string
	width    int
	height   int
	iter     int
	out      string
	thumb    int
	timeout  time.Duration
}

// main is the entry point for the CLI client.
func main() {
	log.Printf("Starting CLI client...")
	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.addr, "addr", "ws://localhost:8080/ws", "Websocket address of the render server.")
	flag.StringVar(&o.region, "region", "full", "Landmark region: full|seahorse|elephant|spiral|triple|needle.")
	flag.StringVar(&o.selector, "fractal", "mandelbrot", "mandelbrot|burningship|julia1|julia2.")
	flag.IntVar(&o.width, "width", 1920, "Image width in pixels.")
	flag.IntVar(&o.height, "height", 1080, "Image height in pixels.")
	flag.IntVar(&o.iter, "iter", 1000, "Target iteration count.")
	flag.StringVar(&o.out, "out", "fractal.png", "Output PNG file.")
	flag.IntVar(&o.thumb, "thumb", 0, "If positive, also save a thumbnail of this width.")
	flag.DurationVar(&o.timeout, "timeout", 5*time.Minute, "Give up after this long.")
	flag.Parse()

	req, err := o.request()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	// Step 1: Connect to the render server, serving our snapshot sink to it
	log.Printf("Connecting to render server at %s...", o.addr)
	snaps := make(chan fractal.Snapshot, 16)
	fails := make(chan error, 1)
	sink := remote.Sink{
		OnSnapshot: func(s fractal.Snapshot) { snaps <- s },
		OnFailure: func(id uint64, reason string) {
			fails <- fmt.Errorf("render %d failed: %s", id, reason)
		},
	}
	conn, err := remote.Dial(ctx, o.addr, sink)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer conn.Close()

	// Step 2: Submit the request
	log.Printf("Requesting %s, %dx%d, %d iterations...", req.Selector, o.width, o.height, o.iter)
	id, err := conn.Submit(req)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	log.Printf("Render %d accepted", id)

	// Step 3: Follow the progressive snapshots until the final one
	snap, err := awaitFinal(ctx, conn, snaps, fails)
	if err != nil {
		return err
	}

	// Step 4: Save the final image
	img := snap.Image()
	if err := savePNG(o.out, img); err != nil {
		return err
	}
	log.Printf("Final image saved to %q", o.out)

	if o.thumb > 0 {
		name := "thumb_" + o.out
		if err := savePNG(name, thumbnail(img, o.thumb)); err != nil {
			return err
		}
		log.Printf("Thumbnail saved to %q", name)
	}
	return nil
}

func (o options) request() (fractal.Request, error) {
	region, err := fractal.LookupRegion(o.region)
	if err != nil {
		return fractal.Request{}, err
	}
	sel, err := fractal.ParseSelector(o.selector)
	if err != nil {
		return fractal.Request{}, err
	}
	req := fractal.Request{
		Viewport:      region.Viewport(o.width, o.height),
		Selector:      sel,
		MaxIterations: o.iter,
	}
	return req, req.Validate()
}

// awaitFinal follows the snapshots pushed by the server until the final one.
func awaitFinal(ctx context.Context, conn *remote.Conn, snaps <-chan fractal.Snapshot, fails <-chan error) (fractal.Snapshot, error) {
	for {
		select {
		case snap := <-snaps:
			if snap.Final {
				return snap, nil
			}
			log.Printf("Render %d: pass %d/%d", snap.ID, snap.Pass+1, snap.Passes)
		case err := <-fails:
			return fractal.Snapshot{}, err
		case <-conn.Done():
			return fractal.Snapshot{}, fmt.Errorf("connection lost: %w", conn.Err())
		case <-ctx.Done():
			return fractal.Snapshot{}, ctx.Err()
		}
	}
}

func thumbnail(src *image.RGBA, width int) *image.RGBA {
	b := src.Bounds()
	height := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

func savePNG(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return f.Close()
}
