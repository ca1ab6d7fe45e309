package potential

import (
	"fmt"
	"math"

	"github.com/san-kum/xrts/internal/field"
	"github.com/san-kum/xrts/internal/grid"
	"github.com/san-kum/xrts/internal/plasma"
	"github.com/san-kum/xrts/internal/transform"
)

// Assembly composes a solver input from one potential kind per pair class
// and a separate kind that supplies the long-range tail for every pair.
type Assembly struct {
	IonIon           Kind
	ElectronIon      Kind
	ElectronElectron Kind
	LongRange        Kind
	Alpha            float64
	Kappa            float64
	Electrons        ElectronMode
}

// Matrices is the assembled input of one solve.
type Matrices struct {
	Species []plasma.Species
	FullR   *field.Field
	LongR   *field.Field
	LongK   *field.Field
}

// DefaultAssembly uses the Coulomb potential for every pair.
func DefaultAssembly() Assembly {
	return Assembly{
		IonIon:           Coulomb,
		ElectronIon:      Coulomb,
		ElectronElectron: Coulomb,
		LongRange:        Coulomb,
		Alpha:            DefaultAlpha,
	}
}

func (a Assembly) potential(k Kind) Potential {
	return Potential{Kind: k, Alpha: a.Alpha, Kappa: a.Kappa, Electrons: a.Electrons}
}

func (a Assembly) classKind(x, y plasma.Species) Kind {
	switch ex, ey := x.IsElectron(), y.IsElectron(); {
	case ex && ey:
		return a.ElectronElectron
	case ex || ey:
		return a.ElectronIon
	default:
		return a.IonIon
	}
}

// Assemble evaluates every distinct kind once and copies each pair class
// out of the matching field.
func (a Assembly) Assemble(st *plasma.State, g grid.Grid) (*Matrices, error) {
	full := make(map[Kind]*field.Field, 3)
	for _, k := range []Kind{a.IonIon, a.ElectronIon, a.ElectronElectron} {
		if _, ok := full[k]; ok {
			continue
		}
		f, err := a.potential(k).FullR(st, g)
		if err != nil {
			return nil, fmt.Errorf("assemble %v: %w", k, err)
		}
		full[k] = f
	}

	tail := a.potential(a.LongRange)
	longR, err := tail.LongR(st, g)
	if err != nil {
		return nil, fmt.Errorf("assemble long range: %w", err)
	}
	longK, err := tail.LongK(st, g)
	if err != nil {
		return nil, fmt.Errorf("assemble long range: %w", err)
	}

	species := tail.Species(st)
	n := len(species)
	out := field.New(n, g.Len())
	for x := 0; x < n; x++ {
		for y := x; y < n; y++ {
			out.SetPair(x, y, full[a.classKind(species[x], species[y])].Slice(x, y))
		}
	}
	return &Matrices{Species: species, FullR: out, LongR: longR, LongK: longK}, nil
}

// Temperatures returns the pair temperature matrix of the assembled species.
func (m *Matrices) Temperatures() [][]float64 { return plasma.MassWeightedT(m.Species) }

func (m *Matrices) Densities() []float64 { return plasma.Densities(m.Species) }

// PairDiagnostic summarises how well the split behaves for one pair.
type PairDiagnostic struct {
	A, B int
	// ShortAtEdge is |FullR - LongR| at the outermost radius relative to
	// |FullR| there.
	ShortAtEdge float64
	// LongAtOrigin is LongR at the innermost radius in J.
	LongAtOrigin float64
	// TailDeviation is the largest |analytic - numerical| LongK over the
	// upper half of the reciprocal grid, relative to max |LongK|.
	TailDeviation float64
}

// Diagnose compares the split of m against its numerical transform.
func Diagnose(m *Matrices, g grid.Grid) ([]PairDiagnostic, error) {
	numeric, err := transform.Potential(m.LongR, g)
	if err != nil {
		return nil, err
	}
	n, last := m.FullR.N, g.Len()-1
	var out []PairDiagnostic
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			d := PairDiagnostic{A: a, B: b, LongAtOrigin: m.LongR.At(a, b, 0)}
			if full := math.Abs(m.FullR.At(a, b, last)); full > 0 {
				d.ShortAtEdge = math.Abs(m.FullR.At(a, b, last)-m.LongR.At(a, b, last)) / full
			}
			analytic, num := m.LongK.Slice(a, b), numeric.Slice(a, b)
			peak := 0.0
			for _, v := range analytic {
				peak = math.Max(peak, math.Abs(v))
			}
			if peak > 0 {
				for i := len(analytic) / 2; i < len(analytic); i++ {
					d.TailDeviation = math.Max(d.TailDeviation, math.Abs(analytic[i]-num[i])/peak)
				}
			}
			out = append(out, d)
		}
	}
	return out, nil
}
