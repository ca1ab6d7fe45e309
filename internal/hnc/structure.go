package hnc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/xrts/internal/field"
	"github.com/san-kum/xrts/internal/grid"
	"github.com/san-kum/xrts/internal/transform"
)

// StructureFactors returns the partial static structure factors
//
//	S_ab(k) = δ_ab + √(n_a n_b) F[g_ab - 1](k)
//
// on the reciprocal grid of tr. For a = b this is δ_ab + n_a F[h_aa].
// Off the diagonal the weight is the Ashcroft-Langreth √(n_a n_b) and not
// n_a: S_ab must equal S_ba, and n_a F[h_ab] breaks that symmetry whenever
// n_a ≠ n_b.
func StructureFactors(g *field.Field, density []float64, tr *transform.Transformer) (*field.Field, error) {
	n, m := len(density), tr.Grid().Len()
	if err := g.CheckShape(n, m); err != nil {
		return nil, &SolveError{Species: n, GridSize: m, Wrapped: fmt.Errorf("%w: %v", ErrShapeMismatch, err)}
	}

	h := g.Apply(func(v float64) float64 { return v - 1 })
	s := field.New(n, m)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			dst := s.Slice(a, b)
			if _, err := tr.Forward(dst, h.Slice(a, b)); err != nil {
				return nil, err
			}
			w := math.Sqrt(density[a] * density[b])
			for i := range dst {
				dst[i] *= w
				if a == b {
					dst[i]++
				}
			}
			if a != b {
				copy(s.Slice(b, a), dst)
			}
		}
	}
	return s, nil
}

// Interpolate evaluates every S_ab at wavenumber k by piecewise-linear
// interpolation on the grid. Outside the grid the edge value is used.
func Interpolate(s *field.Field, g grid.Grid, k float64) ([][]float64, error) {
	if err := s.CheckShape(s.N, g.Len()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	out := make([][]float64, s.N)
	for a := range out {
		out[a] = make([]float64, s.N)
		for b := range out[a] {
			var pl interp.PiecewiseLinear
			if err := pl.Fit(g.K, s.Slice(a, b)); err != nil {
				return nil, err
			}
			out[a][b] = pl.Predict(k)
		}
	}
	return out, nil
}

// LongWavelengthLimit returns S_ab at the smallest grid wavenumber, the
// grid's estimate of S_ab(k → 0).
func LongWavelengthLimit(s *field.Field) [][]float64 {
	out := make([][]float64, s.N)
	for a := range out {
		out[a] = make([]float64, s.N)
		for b := range out[a] {
			out[a][b] = s.At(a, b, 0)
		}
	}
	return out
}
