package fractal

import (
	"image/color"
	"math"
)

// Phi is the golden ratio. It is both the hue step between iteration bands
// and the zoom factor of the viewport controller.
const Phi = 1.618033988749895

// ColorOf colours an escape count. Points that reached the cap are black;
// others get a golden-ratio hue at full saturation, lighter the later they escape.
func ColorOf(iter, iterationCap int) color.RGBA {
	if iter == iterationCap {
		return color.RGBA{A: 0xff}
	}
	_, frac := math.Modf(float64(iter) * Phi)
	hue := frac * 360
	lightness := 50*float64(iter)/float64(iterationCap) + 20
	r, g, b := hslToRGB(hue, 1, lightness/100)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// hslToRGB converts h in degrees, s and l in [0, 1] using the sector formula.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	l = clamp01(l)
	s = clamp01(s)
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	if hp < 0 {
		hp += 6
	}
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r1, g1, b1 float64
	switch {
	case hp < 1:
		r1, g1, b1 = c, x, 0
	case hp < 2:
		r1, g1, b1 = x, c, 0
	case hp < 3:
		r1, g1, b1 = 0, c, x
	case hp < 4:
		r1, g1, b1 = 0, x, c
	case hp < 5:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}

	m := l - c/2
	return channel(r1 + m), channel(g1 + m), channel(b1 + m)
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
