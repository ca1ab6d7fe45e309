package plasma

import (
	"errors"
	"fmt"

	"github.com/ctessum/unit"

	"github.com/san-kum/xrts/internal/units"
)

var ErrInvalidSpecies = errors.New("plasma: invalid species")

// Species is one component of the plasma. Charge is the charge state in
// units of the elementary charge (-1 for electrons).
type Species struct {
	Name        string
	Mass        *unit.Unit
	Charge      float64
	Density     *unit.Unit
	Temperature *unit.Unit
}

// NewSpecies validates dimensions and signs of the supplied quantities.
func NewSpecies(name string, mass *unit.Unit, charge float64, density, temperature *unit.Unit) (Species, error) {
	s := Species{
		Name:        name,
		Mass:        mass,
		Charge:      charge,
		Density:     density,
		Temperature: temperature,
	}
	if err := s.Validate(); err != nil {
		return Species{}, err
	}
	return s, nil
}

func (s Species) Validate() error {
	checks := []struct {
		field string
		q     *unit.Unit
		dims  unit.Dimensions
	}{
		{"mass", s.Mass, units.Mass},
		{"density", s.Density, units.NumberDensity},
		{"temperature", s.Temperature, units.Temperature},
	}
	for _, c := range checks {
		v, err := units.Value(c.q, c.dims)
		if err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrInvalidSpecies, s.Name, c.field, err)
		}
		if v <= 0 {
			return fmt.Errorf("%w: %s %s must be positive, got %g", ErrInvalidSpecies, s.Name, c.field, v)
		}
	}
	return nil
}

// MassKg, NumberDensity and TemperatureK return SI values. They panic for
// species that did not pass Validate.
func (s Species) MassKg() float64        { return units.MustValue(s.Mass, units.Mass) }
func (s Species) NumberDensity() float64 { return units.MustValue(s.Density, units.NumberDensity) }
func (s Species) TemperatureK() float64  { return units.MustValue(s.Temperature, units.Temperature) }

// IsElectron reports whether s is the averaged electron species.
func (s Species) IsElectron() bool {
	return s.Charge < 0 && s.MassKg() < 2*units.ElectronMass
}

// Element is an entry of the built-in element table.
type Element struct {
	Symbol     string
	Z          int
	AtomicMass float64 // in u
}

var elements = map[string]Element{
	"H":  {"H", 1, 1.00794},
	"He": {"He", 2, 4.002602},
	"Li": {"Li", 3, 6.941},
	"Be": {"Be", 4, 9.012182},
	"C":  {"C", 6, 12.0107},
	"Al": {"Al", 13, 26.9815386},
}

func LookupElement(symbol string) (Element, error) {
	el, ok := elements[symbol]
	if !ok {
		return Element{}, fmt.Errorf("%w: unknown element %q", ErrInvalidSpecies, symbol)
	}
	return el, nil
}

// Mass returns the atomic mass of the element as a quantity.
func (e Element) Mass() *unit.Unit { return units.AtomicMasses(e.AtomicMass) }

// NewIon builds an ion species of element el with charge state z.
func NewIon(el Element, z float64, density, temperature *unit.Unit) (Species, error) {
	if z < 0 || z > float64(el.Z) {
		return Species{}, fmt.Errorf("%w: charge state %g outside [0, %d] for %s", ErrInvalidSpecies, z, el.Z, el.Symbol)
	}
	return NewSpecies(el.Symbol, el.Mass(), z, density, temperature)
}
