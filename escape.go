package fractal

import "math"

// bailout is the squared escape radius.
const bailout = 4

// Iterate evaluates the selected formula at (re, im). The result is the index
// of the step whose squared modulus first exceeded 4, or maxIter if the orbit
// stayed inside the radius 2 disc for all maxIter steps.
func Iterate(s Selector, re, im float64, maxIter int) int {
	switch s.Kind {
	case Mandelbrot:
		return MandelbrotIter(re, im, maxIter)
	case BurningShip:
		return BurningShipIter(re, im, maxIter)
	case Julia:
		return JuliaIter(re, im, s.Julia, maxIter)
	}
	panic("fractal: unknown selector kind " + s.Kind.String())
}

// MandelbrotIter iterates z = z² + c from z = 0 with c = (re, im).
func MandelbrotIter(re, im float64, maxIter int) int {
	var x, y float64
	for i := range maxIter {
		x, y = x*x-y*y+re, 2*x*y+im
		if x*x+y*y > bailout {
			return i
		}
	}
	return maxIter
}

// BurningShipIter folds z into the first quadrant before every squaring.
func BurningShipIter(re, im float64, maxIter int) int {
	var x, y float64
	for i := range maxIter {
		ax, ay := math.Abs(x), math.Abs(y)
		x, y = ax*ax-ay*ay+re, 2*ax*ay+im
		if x*x+y*y > bailout {
			return i
		}
	}
	return maxIter
}

// JuliaIter seeds the orbit with the pixel itself and adds the fixed constant p.
func JuliaIter(re, im float64, p JuliaParams, maxIter int) int {
	x, y := re, im
	for i := range maxIter {
		x, y = x*x-y*y+p.Cr, 2*x*y+p.Ci
		if x*x+y*y > bailout {
			return i
		}
	}
	return maxIter
}
