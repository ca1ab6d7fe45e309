// Package plasma holds the species bookkeeping consumed by the potential
// model and the HNC solver, together with a handful of closed-form plasma
// formulas.
//
// Species ordering is significant: ions come first in the order given,
// the averaged electron species (if included) comes last. Every N×N matrix
// in xrts is indexed in this order.
package plasma

import (
	"fmt"

	"github.com/ctessum/unit"

	"github.com/san-kum/xrts/internal/units"
)

// State is a quasi-neutral plasma: a set of ion species plus one averaged
// electron species whose density follows from charge neutrality.
type State struct {
	Ions                []Species
	ElectronTemperature *unit.Unit
}

func NewState(ions []Species, electronTemperature *unit.Unit) (*State, error) {
	s := &State{Ions: ions, ElectronTemperature: electronTemperature}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) Validate() error {
	if len(s.Ions) == 0 {
		return fmt.Errorf("%w: state has no ion species", ErrInvalidSpecies)
	}
	for _, ion := range s.Ions {
		if err := ion.Validate(); err != nil {
			return err
		}
	}
	if _, err := units.Value(s.ElectronTemperature, units.Temperature); err != nil {
		return fmt.Errorf("%w: electron temperature: %v", ErrInvalidSpecies, err)
	}
	return nil
}

// ElectronDensity returns n_e = Σ Z_i n_i in m^-3.
func (s *State) ElectronDensity() float64 {
	ne := 0.0
	for _, ion := range s.Ions {
		ne += ion.Charge * ion.NumberDensity()
	}
	return ne
}

// Electron returns the averaged electron species.
func (s *State) Electron() Species {
	return Species{
		Name:        "e",
		Mass:        units.Kilograms(units.ElectronMass),
		Charge:      -1,
		Density:     units.PerCubicMeter(s.ElectronDensity()),
		Temperature: s.ElectronTemperature,
	}
}

// Species returns the ordered species set, optionally followed by the
// electrons.
func (s *State) Species(includeElectrons bool) []Species {
	out := make([]Species, 0, len(s.Ions)+1)
	out = append(out, s.Ions...)
	if includeElectrons {
		out = append(out, s.Electron())
	}
	return out
}

// Clone returns a copy whose ion slice can be modified independently.
func (s *State) Clone() *State {
	ions := make([]Species, len(s.Ions))
	copy(ions, s.Ions)
	return &State{Ions: ions, ElectronTemperature: s.ElectronTemperature}
}

// WithIonTemperature returns a copy of s with the temperature of ion i
// replaced.
func (s *State) WithIonTemperature(i int, t *unit.Unit) (*State, error) {
	if i < 0 || i >= len(s.Ions) {
		return nil, fmt.Errorf("%w: ion index %d out of range", ErrInvalidSpecies, i)
	}
	c := s.Clone()
	c.Ions[i].Temperature = t
	if err := c.Ions[i].Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
