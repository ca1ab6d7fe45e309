// Package grid provides the paired radial / reciprocal grid shared by all
// potentials, transforms and solver fields of one solve.
//
// Radii are r_j = (j+1)·Δr for j = 0..M-1, so r = 0 is never sampled.
// Wavenumbers are k_i = (i+1)·Δk with Δk = π / ((M+1)·Δr). This pairing
// makes the radial transform a type-I discrete sine transform, which is
// exactly invertible.
//
// The customary pairing Δk = π / (M·Δr) with k_0 = π / r_{M-1} is not used.
// On that lattice k_i·r_j is not a multiple of π/(M+1), so the sine sums
// are not a DST and the forward/inverse pair is only approximately each
// other's inverse. Δk and k_0 here are both M/(M+1) times the customary
// values.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrInvalidGrid = errors.New("grid: invalid grid")

// Grid is immutable after construction; R and K must not be modified.
type Grid struct {
	R  []float64
	K  []float64
	Dr float64
	Dk float64
}

// Spec is the compact, persistable form of a grid.
type Spec struct {
	RMax   float64 `json:"r_max" yaml:"r_max" toml:"r_max"`
	Points int     `json:"points" yaml:"points" toml:"points"`
}

// New builds a grid of m points extending to rMax (in metres).
func New(rMax float64, m int) (Grid, error) {
	if m < 2 {
		return Grid{}, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidGrid, m)
	}
	if !(rMax > 0) || math.IsInf(rMax, 0) {
		return Grid{}, fmt.Errorf("%w: r_max must be positive and finite, got %g", ErrInvalidGrid, rMax)
	}

	dr := rMax / float64(m)
	dk := math.Pi / (float64(m+1) * dr)

	r := make([]float64, m)
	k := make([]float64, m)
	floats.Span(r, dr, rMax)
	floats.Span(k, dk, float64(m)*dk)

	return Grid{R: r, K: k, Dr: dr, Dk: dk}, nil
}

func FromSpec(s Spec) (Grid, error) { return New(s.RMax, s.Points) }

func (g Grid) Spec() Spec { return Spec{RMax: g.RMax(), Points: g.Len()} }

func (g Grid) Len() int { return len(g.R) }

func (g Grid) RMax() float64 {
	if len(g.R) == 0 {
		return 0
	}
	return g.R[len(g.R)-1]
}

// IsPow2 reports whether the grid length is a power of two.
func (g Grid) IsPow2() bool {
	m := g.Len()
	return m > 0 && m&(m-1) == 0
}

// Validate checks the invariants New establishes, for grids that were
// assembled by hand or decoded from storage.
func (g Grid) Validate() error {
	m := len(g.R)
	if m < 2 || len(g.K) != m {
		return fmt.Errorf("%w: radial/reciprocal lengths %d/%d", ErrInvalidGrid, len(g.R), len(g.K))
	}
	if !(g.Dr > 0) || !(g.Dk > 0) {
		return fmt.Errorf("%w: non-positive spacing dr=%g dk=%g", ErrInvalidGrid, g.Dr, g.Dk)
	}
	wantDk := math.Pi / (float64(m+1) * g.Dr)
	if math.Abs(g.Dk-wantDk) > 1e-9*wantDk {
		return fmt.Errorf("%w: dk=%g does not pair with dr=%g (want %g)", ErrInvalidGrid, g.Dk, g.Dr, wantDk)
	}
	for j := 0; j < m; j++ {
		wantR := float64(j+1) * g.Dr
		wantK := float64(j+1) * g.Dk
		if math.Abs(g.R[j]-wantR) > 1e-9*wantR || math.Abs(g.K[j]-wantK) > 1e-9*wantK {
			return fmt.Errorf("%w: point %d off the uniform lattice", ErrInvalidGrid, j)
		}
	}
	return nil
}

// KIndex returns the index of the first wavenumber >= k, clamped to the grid.
func (g Grid) KIndex(k float64) int {
	i := int(math.Ceil(k/g.Dk-1e-9)) - 1
	if i < 0 {
		return 0
	}
	if i >= len(g.K) {
		return len(g.K) - 1
	}
	return i
}
