package fractal

import "fmt"

// Region is a rectangle of the complex plane.
type Region struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

// Viewport centres the region on a w×h canvas. The region's horizontal extent
// becomes the scale; the vertical extent follows from the canvas aspect.
func (r Region) Viewport(w, h int) Viewport {
	return Viewport{
		CenterX:     (r.Xmin + r.Xmax) / 2,
		CenterY:     (r.Ymin + r.Ymax) / 2,
		Scale:       r.Xmax - r.Xmin,
		PixelWidth:  w,
		PixelHeight: h,
	}
}

// Classic regions / landmarks in the Mandelbrot set
var (
	// Whole set as shown on start-up
	FullSet = Region{
		Xmin: -2,
		Xmax: 1,
		Ymin: -1,
		Ymax: 1,
	}

	// Seahorse Valley – dense filaments and repeating “seahorse” curls
	SeahorseValley = Region{
		Xmin: -0.8,
		Xmax: -0.7,
		Ymin: 0.05,
		Ymax: 0.15,
	}

	// Elephant Valley – large bulb with trunk-like tendrils
	ElephantValley = Region{
		Xmin: 0.25,
		Xmax: 0.35,
		Ymin: -0.05,
		Ymax: 0.05,
	}

	// Spiral Minibrot – small Mandelbrot copy with tight spiral arms
	SpiralMinibrot = Region{
		Xmin: -0.7435,
		Xmax: -0.7420,
		Ymin: 0.1310,
		Ymax: 0.1325,
	}

	// Triple Spiral – threefold symmetric spiral structure
	TripleSpiral = Region{
		Xmin: -0.7480,
		Xmax: -0.7450,
		Ymin: 0.0950,
		Ymax: 0.0980,
	}

	// Minibrot on the real axis near the tip of the needle
	NeedleMinibrot = Region{
		Xmin: -1.7790,
		Xmax: -1.7520,
		Ymin: -0.0135,
		Ymax: 0.0135,
	}
)

var regionNames = map[string]Region{
	"full":     FullSet,
	"seahorse": SeahorseValley,
	"elephant": ElephantValley,
	"spiral":   SpiralMinibrot,
	"triple":   TripleSpiral,
	"needle":   NeedleMinibrot,
}

// LookupRegion returns the landmark registered under name.
func LookupRegion(name string) (Region, error) {
	r, ok := regionNames[name]
	if !ok {
		return Region{}, fmt.Errorf("unknown region %q", name)
	}
	return r, nil
}
