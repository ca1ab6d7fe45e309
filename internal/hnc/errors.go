package hnc

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch indicates inconsistent species counts or grid sizes
	// between the inputs of a solve. It is reported before iterating.
	ErrShapeMismatch = errors.New("hnc: shape mismatch")

	// ErrInvalidInput indicates non-finite or non-physical input values.
	ErrInvalidInput = errors.New("hnc: invalid input")

	// ErrInvalidConfig indicates a solver configuration outside its bounds.
	ErrInvalidConfig = errors.New("hnc: invalid solver configuration")

	// ErrSingularMatrix indicates the Ornstein-Zernike matrix could not be
	// inverted at some wavenumber, even after regularization.
	ErrSingularMatrix = errors.New("hnc: singular Ornstein-Zernike matrix")

	// ErrNonConvergence is never returned by Solve; Result.Err produces it
	// for callers that treat an exhausted iteration budget as failure.
	ErrNonConvergence = errors.New("hnc: iteration cap reached without convergence")

	// ErrDiverged is returned by DivergenceGuard, or when the iterate
	// stops being finite.
	ErrDiverged = errors.New("hnc: iteration diverged")
)

// SolveError attaches solve context to one of the errors above.
type SolveError struct {
	Species   int
	GridSize  int
	Iteration int
	// K is the wavenumber in m^-1 at which a matrix failure occurred.
	K       float64
	Wrapped error
}

func (e *SolveError) Error() string {
	if e.K > 0 {
		return fmt.Sprintf("%v (species=%d grid=%d iteration=%d k=%.6g)", e.Wrapped, e.Species, e.GridSize, e.Iteration, e.K)
	}
	return fmt.Sprintf("%v (species=%d grid=%d iteration=%d)", e.Wrapped, e.Species, e.GridSize, e.Iteration)
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}
