// Package potential builds the pair interaction potentials fed to the HNC
// solver. Every potential is split with an Ewald-like parameter α into a
// short-range part that is handled in radial space and a smooth long-range
// tail whose reciprocal-space form is known in closed form.
//
// All radial fields are energies in J; LongK is in J·m³.
package potential

import (
	"fmt"

	"github.com/san-kum/xrts/internal/field"
	"github.com/san-kum/xrts/internal/grid"
	"github.com/san-kum/xrts/internal/plasma"
	"github.com/san-kum/xrts/internal/units"
)

// DefaultAlpha is the split parameter, 2 Å^-1.
const DefaultAlpha = 2 / units.Angstrom

// Potential is a pure description: it holds no per-state data and can be
// shared between goroutines.
type Potential struct {
	Kind  Kind
	Alpha float64 // m^-1
	// Kappa is the DebyeHuckel screening wavenumber in m^-1. Zero selects
	// the Debye wavenumber of the species set.
	Kappa     float64
	Electrons ElectronMode
}

func New(kind Kind) Potential {
	return Potential{Kind: kind, Alpha: DefaultAlpha}
}

func (p Potential) variant() (variant, error) {
	v, ok := lookup(p.Kind)
	if !ok {
		return variant{}, fmt.Errorf("%w: %v", ErrUnknownKind, p.Kind)
	}
	if !(p.Alpha > 0) {
		return variant{}, fmt.Errorf("potential %v: alpha must be positive, got %g", p.Kind, p.Alpha)
	}
	if p.Kappa < 0 {
		return variant{}, fmt.Errorf("potential %v: kappa must not be negative, got %g", p.Kind, p.Kappa)
	}
	return v, nil
}

// Species returns the species set this potential is evaluated over.
func (p Potential) Species(st *plasma.State) []plasma.Species {
	return st.Species(p.Electrons != Off)
}

func (p Potential) pairs(species []plasma.Species) [][]pair {
	n := len(species)
	tbar := plasma.MassWeightedT(species)
	kappa := p.Kappa
	if kappa == 0 {
		kappa = plasma.DebyeWavenumber(species)
	}
	out := make([][]pair, n)
	for a := 0; a < n; a++ {
		out[a] = make([]pair, n)
		for b := 0; b < n; b++ {
			t := tbar[a][b]
			out[a][b] = pair{
				q:      species[a].Charge * species[b].Charge * units.CoulombConstant,
				kT:     units.Boltzmann * t,
				lambda: plasma.ThermalWavelength(plasma.ReducedMass(species[a], species[b]), t),
				kappa:  kappa,
			}
		}
	}
	return out
}

type part int

const (
	partFull part = iota
	partShort
	partLong
	partLongK
)

func (p Potential) eval(st *plasma.State, g grid.Grid, which part) (*field.Field, error) {
	v, err := p.variant()
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	species := p.Species(st)
	pairs := p.pairs(species)
	n, m := len(species), g.Len()
	f := field.New(n, m)
	series := make([]float64, m)

	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			pp := pairs[a][b]
			exchange := p.Kind != Empty && p.Electrons == SpinAveraged &&
				species[a].IsElectron() && species[b].IsElectron()
			for i := 0; i < m; i++ {
				r := g.R[i]
				switch which {
				case partFull:
					series[i] = v.full(r, pp)
				case partShort:
					series[i] = v.full(r, pp) - v.longR(r, pp, p.Alpha)
				case partLong:
					series[i] = v.longR(r, pp, p.Alpha)
				case partLongK:
					series[i] = v.longK(g.K[i], pp, p.Alpha)
				}
				if exchange && (which == partFull || which == partShort) {
					series[i] += pauli(r, pp)
				}
			}
			f.SetPair(a, b, series)
		}
	}
	return f, nil
}

// FullR returns the complete potential on the radial grid.
func (p Potential) FullR(st *plasma.State, g grid.Grid) (*field.Field, error) {
	return p.eval(st, g, partFull)
}

// ShortR returns FullR minus LongR.
func (p Potential) ShortR(st *plasma.State, g grid.Grid) (*field.Field, error) {
	return p.eval(st, g, partShort)
}

// LongR returns the smooth long-range tail, finite at r = 0.
func (p Potential) LongR(st *plasma.State, g grid.Grid) (*field.Field, error) {
	return p.eval(st, g, partLong)
}

// LongK returns the closed-form 3D Fourier transform of LongR on the
// reciprocal grid.
func (p Potential) LongK(st *plasma.State, g grid.Grid) (*field.Field, error) {
	return p.eval(st, g, partLongK)
}
