// Package field implements the N×N×M matrix-valued radial fields used
// throughout xrts: potentials, pair distributions, correlation functions
// and structure factors. A field holds one radial (or reciprocal) series
// of length M for every ordered species pair (a, b).
package field

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrShape = errors.New("field: shape mismatch")

// Field stores its values row-major in (a, b, i) order.
type Field struct {
	N    int
	M    int
	Data []float64
}

func New(n, m int) *Field {
	return &Field{N: n, M: m, Data: make([]float64, n*n*m)}
}

// FromFunc fills a new field with fn(a, b, i).
func FromFunc(n, m int, fn func(a, b, i int) float64) *Field {
	f := New(n, m)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			s := f.Slice(a, b)
			for i := range s {
				s[i] = fn(a, b, i)
			}
		}
	}
	return f
}

func (f *Field) Dims() (n, m int) { return f.N, f.M }

func (f *Field) At(a, b, i int) float64    { return f.Data[(a*f.N+b)*f.M+i] }
func (f *Field) Set(a, b, i int, v float64) { f.Data[(a*f.N+b)*f.M+i] = v }

// Slice returns the series of pair (a, b). It aliases the field's storage.
func (f *Field) Slice(a, b int) []float64 {
	off := (a*f.N + b) * f.M
	return f.Data[off : off+f.M : off+f.M]
}

// SetPair copies v into both (a, b) and (b, a).
func (f *Field) SetPair(a, b int, v []float64) {
	copy(f.Slice(a, b), v)
	if a != b {
		copy(f.Slice(b, a), v)
	}
}

func (f *Field) Clone() *Field {
	c := &Field{N: f.N, M: f.M, Data: make([]float64, len(f.Data))}
	copy(c.Data, f.Data)
	return c
}

// CheckShape returns ErrShape unless f is n×n×m.
func (f *Field) CheckShape(n, m int) error {
	if f == nil {
		return fmt.Errorf("%w: nil field, want %dx%dx%d", ErrShape, n, n, m)
	}
	if f.N != n || f.M != m || len(f.Data) != n*n*m {
		return fmt.Errorf("%w: got %dx%dx%d (%d values), want %dx%dx%d", ErrShape, f.N, f.N, f.M, len(f.Data), n, n, m)
	}
	return nil
}

func (f *Field) IsFinite() bool {
	for _, v := range f.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsSymmetric reports whether |f_ab(i) - f_ba(i)| <= tol·max(1, |f_ab(i)|)
// everywhere.
func (f *Field) IsSymmetric(tol float64) bool {
	for a := 0; a < f.N; a++ {
		for b := a + 1; b < f.N; b++ {
			ab, ba := f.Slice(a, b), f.Slice(b, a)
			for i := range ab {
				if math.Abs(ab[i]-ba[i]) > tol*math.Max(1, math.Abs(ab[i])) {
					return false
				}
			}
		}
	}
	return true
}

// Symmetrize replaces f_ab and f_ba by their mean.
func (f *Field) Symmetrize() {
	for a := 0; a < f.N; a++ {
		for b := a + 1; b < f.N; b++ {
			ab, ba := f.Slice(a, b), f.Slice(b, a)
			for i := range ab {
				m := 0.5 * (ab[i] + ba[i])
				ab[i], ba[i] = m, m
			}
		}
	}
}

func (f *Field) Scale(s float64) *Field {
	c := f.Clone()
	floats.Scale(s, c.Data)
	return c
}

// Apply returns a new field with fn applied elementwise.
func (f *Field) Apply(fn func(float64) float64) *Field {
	c := f.Clone()
	for i, v := range c.Data {
		c.Data[i] = fn(v)
	}
	return c
}

func (f *Field) Norm() float64 { return floats.Norm(f.Data, 2) }

func Add(a, b *Field) (*Field, error) {
	if err := b.CheckShape(a.N, a.M); err != nil {
		return nil, err
	}
	c := a.Clone()
	floats.Add(c.Data, b.Data)
	return c, nil
}

func Sub(a, b *Field) (*Field, error) {
	if err := b.CheckShape(a.N, a.M); err != nil {
		return nil, err
	}
	c := a.Clone()
	floats.Sub(c.Data, b.Data)
	return c, nil
}

// MaxAbsDiff returns max_i |a_i - b_i| over the whole array.
func MaxAbsDiff(a, b *Field) (float64, error) {
	if err := b.CheckShape(a.N, a.M); err != nil {
		return 0, err
	}
	return floats.Distance(a.Data, b.Data, math.Inf(1)), nil
}
