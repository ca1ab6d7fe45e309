package hnc

import "fmt"

// DivergenceGuard aborts a solve once the residual has grown for Patience
// consecutive iterations. A guard is stateful; use one per solve.
type DivergenceGuard struct {
	Patience int

	last   float64
	streak int
}

func NewDivergenceGuard(patience int) *DivergenceGuard {
	return &DivergenceGuard{Patience: patience}
}

func (d *DivergenceGuard) OnIteration(iteration int, residual float64) error {
	if iteration <= 1 {
		d.last, d.streak = residual, 0
		return nil
	}
	if residual > d.last {
		d.streak++
	} else {
		d.streak = 0
	}
	d.last = residual
	if d.Patience > 0 && d.streak >= d.Patience {
		return fmt.Errorf("%w: residual grew for %d consecutive iterations, now %.3e", ErrDiverged, d.streak, residual)
	}
	return nil
}

// History records every residual. It is the simplest Observer and is what
// the live view and the tests use to watch a solve.
type History struct {
	Residuals []float64
}

func (h *History) OnIteration(_ int, residual float64) error {
	h.Residuals = append(h.Residuals, residual)
	return nil
}
