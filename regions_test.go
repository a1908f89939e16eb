package fractal

import "testing"

func TestRegionViewport(t *testing.T) {
	v := SeahorseValley.Viewport(1920, 1080)
	if err := v.Validate(); err != nil {
		t.Fatalf("Viewport() invalid: %v", err)
	}
	re, im := ToComplex(960, 540, v)
	if re != v.CenterX || im != v.CenterY {
		t.Fatalf("centre maps to (%v, %v), want (%v, %v)", re, im, v.CenterX, v.CenterY)
	}
	left, _ := ToComplex(0, 540, v)
	right, _ := ToComplex(1920, 540, v)
	if d := right - left - (SeahorseValley.Xmax - SeahorseValley.Xmin); d > 1e-12 || d < -1e-12 {
		t.Fatalf("horizontal span = %v, want region width", right-left)
	}
}

func TestLookupRegion(t *testing.T) {
	r, err := LookupRegion("seahorse")
	if err != nil || r != SeahorseValley {
		t.Fatalf("LookupRegion(seahorse) = %+v, %v", r, err)
	}
	if _, err := LookupRegion("atlantis"); err == nil {
		t.Fatalf("LookupRegion(atlantis) succeeded")
	}
}
