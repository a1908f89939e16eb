package fractal

import (
	"errors"
	"fmt"
)

var ErrUnknownSelector = errors.New("unknown fractal selector")

// Kind is the escape-time formula family.
type Kind uint8

const (
	Mandelbrot Kind = iota
	BurningShip
	Julia
)

func (k Kind) String() string {
	switch k {
	case Mandelbrot:
		return "mandelbrot"
	case BurningShip:
		return "burningship"
	case Julia:
		return "julia"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// JuliaParams is the fixed constant c of a Julia set.
type JuliaParams struct {
	Cr, Ci float64
}

// JuliaPresets are the supported Julia constants.
var JuliaPresets = [...]JuliaParams{
	{Cr: -0.8, Ci: 0.156},
	{Cr: 0.285, Ci: 0.01},
}

// Selector picks the formula. Julia is only meaningful for Kind == Julia.
type Selector struct {
	Kind  Kind
	Julia JuliaParams
}

var (
	SelectMandelbrot  = Selector{Kind: Mandelbrot}
	SelectBurningShip = Selector{Kind: BurningShip}
	SelectJulia1      = Selector{Kind: Julia, Julia: JuliaPresets[0]}
	SelectJulia2      = Selector{Kind: Julia, Julia: JuliaPresets[1]}
)

// Selectors lists every selectable fractal in menu order.
var Selectors = []Selector{SelectMandelbrot, SelectBurningShip, SelectJulia1, SelectJulia2}

var selectorNames = map[string]Selector{
	"mandelbrot":  SelectMandelbrot,
	"burningship": SelectBurningShip,
	"julia1":      SelectJulia1,
	"julia2":      SelectJulia2,
}

// ParseSelector resolves the text form used by flags and the wire protocol.
func ParseSelector(name string) (Selector, error) {
	s, ok := selectorNames[name]
	if !ok {
		return Selector{}, fmt.Errorf("%w: %q", ErrUnknownSelector, name)
	}
	return s, nil
}

// Validate rejects kinds outside the closed set.
func (s Selector) Validate() error {
	switch s.Kind {
	case Mandelbrot, BurningShip, Julia:
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnknownSelector, s.Kind)
}

func (s Selector) String() string {
	if name, ok := s.name(); ok {
		return name
	}
	if s.Kind == Julia {
		return fmt.Sprintf("julia(%g%+gi)", s.Julia.Cr, s.Julia.Ci)
	}
	return s.Kind.String()
}

func (s Selector) name() (string, bool) {
	for name, sel := range selectorNames {
		if sel == s {
			return name, true
		}
	}
	return "", false
}

// MarshalText implements encoding.TextMarshaler. Only named selectors have a text form.
func (s Selector) MarshalText() ([]byte, error) {
	name, ok := s.name()
	if !ok {
		return nil, fmt.Errorf("%w: %s has no name", ErrUnknownSelector, s)
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Selector) UnmarshalText(b []byte) error {
	sel, err := ParseSelector(string(b))
	if err != nil {
		return err
	}
	*s = sel
	return nil
}
