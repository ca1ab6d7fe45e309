// Package transform implements the 3D radial Fourier transform pair
//
//	F(k) = (4π / k) ∫ r f(r) sin(kr) dr
//	f(r) = (1 / (2π² r)) ∫ k F(k) sin(kr) dk
//
// on a grid.Grid. Because k_i·r_j = π(i+1)(j+1)/(M+1) on that grid, both
// sums are type-I discrete sine transforms and the pair inverts exactly.
package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/san-kum/xrts/internal/field"
	"github.com/san-kum/xrts/internal/grid"
)

var ErrLength = errors.New("transform: length does not match grid")

// Transformer holds scratch buffers and is not safe for concurrent use.
// Create one per solve.
type Transformer struct {
	grid grid.Grid
	dst  *fourier.DST
	// norm is the factor the DST applies on top of Σ x_j sin(...).
	norm float64
	in   []float64
	out  []float64
}

func New(g grid.Grid) (*Transformer, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	m := g.Len()
	t := &Transformer{
		grid: g,
		dst:  fourier.NewDST(m),
		in:   make([]float64, m),
		out:  make([]float64, m),
	}
	t.in[0] = 1
	t.dst.Transform(t.out, t.in)
	t.norm = t.out[0] / math.Sin(math.Pi/float64(m+1))
	t.in[0] = 0
	return t, nil
}

func (t *Transformer) Grid() grid.Grid { return t.grid }

func (t *Transformer) check(dst, src []float64) ([]float64, error) {
	m := t.grid.Len()
	if len(src) != m {
		return nil, fmt.Errorf("%w: source has %d points, grid has %d", ErrLength, len(src), m)
	}
	if dst == nil {
		dst = make([]float64, m)
	}
	if len(dst) != m {
		return nil, fmt.Errorf("%w: destination has %d points, grid has %d", ErrLength, len(dst), m)
	}
	return dst, nil
}

// Forward maps f(r_j) to F(k_i). dst may be nil or alias src.
func (t *Transformer) Forward(dst, src []float64) ([]float64, error) {
	dst, err := t.check(dst, src)
	if err != nil {
		return nil, err
	}
	for j, r := range t.grid.R {
		t.in[j] = r * src[j]
	}
	t.dst.Transform(t.out, t.in)
	c := 4 * math.Pi * t.grid.Dr / t.norm
	for i, k := range t.grid.K {
		dst[i] = c * t.out[i] / k
	}
	return dst, nil
}

// Inverse maps F(k_i) back to f(r_j). dst may be nil or alias src.
func (t *Transformer) Inverse(dst, src []float64) ([]float64, error) {
	dst, err := t.check(dst, src)
	if err != nil {
		return nil, err
	}
	for i, k := range t.grid.K {
		t.in[i] = k * src[i]
	}
	t.dst.Transform(t.out, t.in)
	c := t.grid.Dk / (2 * math.Pi * math.Pi * t.norm)
	for j, r := range t.grid.R {
		dst[j] = c * t.out[j] / r
	}
	return dst, nil
}

// ForwardField transforms every pair series of f into a new field.
func (t *Transformer) ForwardField(f *field.Field) (*field.Field, error) {
	return t.apply(f, t.Forward)
}

// InverseField transforms every pair series of f into a new field.
func (t *Transformer) InverseField(f *field.Field) (*field.Field, error) {
	return t.apply(f, t.Inverse)
}

func (t *Transformer) apply(f *field.Field, fn func(dst, src []float64) ([]float64, error)) (*field.Field, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil field", ErrLength)
	}
	if err := f.CheckShape(f.N, t.grid.Len()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLength, err)
	}
	out := field.New(f.N, f.M)
	for a := 0; a < f.N; a++ {
		for b := 0; b < f.N; b++ {
			if _, err := fn(out.Slice(a, b), f.Slice(a, b)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Potential numerically transforms a long-range radial potential. It is a
// one-shot helper for callers that do not hold a Transformer.
func Potential(longR *field.Field, g grid.Grid) (*field.Field, error) {
	t, err := New(g)
	if err != nil {
		return nil, err
	}
	return t.ForwardField(longR)
}
