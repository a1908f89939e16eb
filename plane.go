package fractal

// ToComplex maps pixel (px, py) to the complex plane. The vertical span is
// scaled by height/width so shapes keep their aspect, and the canvas centre
// maps exactly to (CenterX, CenterY).
func ToComplex(px, py float64, v Viewport) (re, im float64) {
	w := float64(v.PixelWidth)
	h := float64(v.PixelHeight)
	re = (px/w-0.5)*v.Scale + v.CenterX
	im = (py/h-0.5)*v.Scale*(h/w) + v.CenterY
	return re, im
}

// FromComplex is the inverse of ToComplex.
func FromComplex(re, im float64, v Viewport) (px, py float64) {
	w := float64(v.PixelWidth)
	h := float64(v.PixelHeight)
	px = ((re-v.CenterX)/v.Scale + 0.5) * w
	py = ((im-v.CenterY)/(v.Scale*(h/w)) + 0.5) * h
	return px, py
}
