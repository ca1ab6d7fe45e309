// Package hnc solves the multi-component Ornstein-Zernike equation with the
// hypernetted-chain closure.
//
// The iteration works on the short-range parts of the correlation
// functions. With c = c_s - βV_l and γ_s = h - c_s the closure reads
// g = exp(-βV_s + γ_s), and the long-range tail of c only ever appears in
// reciprocal space through the closed-form βV̂_l.
//
//	c_s(r) = g(r) - 1 - γ_s(r)
//	ĉ(k)   = F[c_s](k) - βV̂_l(k)
//	ĥ(k)   = (I - ĉ(k)·diag(n))^-1 ĉ(k)
//	γ_s'   = F^-1[ĥ - F[c_s]]
//	γ_s    = α·γ_s' + (1-α)·γ_s
//	g(r)   = exp(clamp(-βV_s(r) + γ_s(r)))
//
// γ_s is the only iterate; g always satisfies the closure for it. A cold
// start uses γ_s = 0, the Debye-like guess g = exp(-βV_s). The residual is
// the largest absolute change of g over all pairs and radii.
package hnc

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/xrts/internal/field"
	"github.com/san-kum/xrts/internal/grid"
	"github.com/san-kum/xrts/internal/transform"
	"github.com/san-kum/xrts/internal/units"
)

// The closure exponent is held to [MinExponent, MaxExponent]. The lower
// bound only avoids underflow inside hard cores. The upper bound caps g at
// e^30 ≈ 1e13; a solve with any point on it is never reported converged.
const (
	MinExponent = -700
	MaxExponent = 30
)

// Input is everything one solve consumes. Potentials are energies in J,
// LongK in J·m³, Temperature the N×N pair temperatures in K and Density the
// number densities in m^-3. LongR and LongK are either both nil (no long
// range split) or both set.
type Input struct {
	PotentialR  *field.Field
	LongR       *field.Field
	LongK       *field.Field
	Grid        grid.Grid
	Temperature [][]float64
	Density     []float64
}

func (in Input) species() int { return len(in.Density) }

type Config struct {
	MaxIterations int
	Tolerance     float64
	// Mixing is the weight of the new iterate, in (0, 1].
	Mixing float64
	// Regularization is added to the OZ matrix diagonal when the plain
	// solve fails. Zero disables the retry.
	Regularization float64
	// InitialGuess warm-starts g(r), e.g. from a neighbouring solve.
	InitialGuess *field.Field
	// LogEvery is the iteration interval of debug log lines; 0 disables.
	LogEvery int
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:  1000,
		Tolerance:      1e-6,
		Mixing:         0.5,
		Regularization: 1e-12,
		LogEvery:       100,
	}
}

type Result struct {
	G *field.Field
	// Indirect is the short-range indirect correlation γ_s(r).
	Indirect   *field.Field
	Iterations int
	Residual   float64
	Converged  bool
	// Saturated counts the points of the last iterate whose closure
	// exponent was cut to MaxExponent.
	Saturated int
	History   []float64
}

// Err returns nil for converged results and a wrapped ErrNonConvergence
// otherwise.
func (r *Result) Err() error {
	if r.Converged {
		return nil
	}
	if r.Saturated > 0 {
		return fmt.Errorf("%w: %d iterations, residual %.3e, g at its ceiling at %d points",
			ErrNonConvergence, r.Iterations, r.Residual, r.Saturated)
	}
	return fmt.Errorf("%w: %d iterations, residual %.3e", ErrNonConvergence, r.Iterations, r.Residual)
}

// Observer is notified after every iteration. A non-nil error aborts the
// solve and is returned wrapped in a SolveError.
type Observer interface {
	OnIteration(iteration int, residual float64) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(iteration int, residual float64) error

func (f ObserverFunc) OnIteration(iteration int, residual float64) error { return f(iteration, residual) }

// Solver holds observers and a logger. It keeps no per-solve state, so one
// Solver can run concurrent solves as long as its observers allow it.
type Solver struct {
	Log       logrus.FieldLogger
	observers []Observer
}

func New() *Solver {
	return &Solver{Log: logrus.StandardLogger(), observers: make([]Observer, 0)}
}

func (s *Solver) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Solve runs with a fresh Solver and no observers.
func Solve(ctx context.Context, in Input, cfg Config) (*Result, error) {
	return New().Solve(ctx, in, cfg)
}

func (s *Solver) Solve(ctx context.Context, in Input, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if err := validateInput(in, cfg); err != nil {
		return nil, err
	}
	tr, err := transform.New(in.Grid)
	if err != nil {
		return nil, s.fail(in, 0, 0, fmt.Errorf("%w: %v", ErrShapeMismatch, err))
	}

	st := newState(in, cfg)
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"species": st.n, "points": st.m})

	res := &Result{History: make([]float64, 0, min(cfg.MaxIterations, 4096))}
	for it := 1; it <= cfg.MaxIterations; it++ {
		select {
		case <-ctx.Done():
			res.G, res.Indirect = st.g, st.gamma
			return res, ctx.Err()
		default:
		}

		residual, k, err := st.step(tr, cfg)
		if err != nil {
			return nil, s.fail(in, it, k, err)
		}
		res.Iterations = it
		res.Residual = residual
		res.Saturated = st.saturated
		res.History = append(res.History, residual)

		if cfg.LogEvery > 0 && it%cfg.LogEvery == 0 {
			log.WithFields(logrus.Fields{"iteration": it, "residual": residual}).Debug("hnc iteration")
		}
		for _, o := range s.observers {
			if err := o.OnIteration(it, residual); err != nil {
				res.G, res.Indirect = st.g, st.gamma
				return res, s.fail(in, it, 0, err)
			}
		}
		if residual < cfg.Tolerance && st.saturated == 0 {
			res.Converged = true
			break
		}
	}

	res.G, res.Indirect = st.g, st.gamma
	fields := logrus.Fields{"iterations": res.Iterations, "residual": res.Residual}
	switch {
	case res.Converged:
		log.WithFields(fields).Info("hnc converged")
	case res.Saturated > 0:
		log.WithFields(fields).WithField("saturated", res.Saturated).Warn("hnc stopped with g at its ceiling")
	default:
		log.WithFields(fields).Warn("hnc reached iteration cap")
	}
	return res, nil
}

func (s *Solver) fail(in Input, it int, k float64, err error) error {
	return &SolveError{Species: in.species(), GridSize: in.Grid.Len(), Iteration: it, K: k, Wrapped: err}
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfig, cfg.MaxIterations)
	case !(cfg.Tolerance > 0):
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, cfg.Tolerance)
	case !(cfg.Mixing > 0 && cfg.Mixing <= 1):
		return fmt.Errorf("%w: mixing must be in (0, 1], got %g", ErrInvalidConfig, cfg.Mixing)
	case cfg.Regularization < 0 || math.IsNaN(cfg.Regularization):
		return fmt.Errorf("%w: regularization must not be negative, got %g", ErrInvalidConfig, cfg.Regularization)
	}
	return nil
}

func validateInput(in Input, cfg Config) error {
	n, m := in.species(), in.Grid.Len()
	shape := func(format string, args ...any) error {
		return &SolveError{Species: n, GridSize: m, Wrapped: fmt.Errorf("%w: "+format, append([]any{ErrShapeMismatch}, args...)...)}
	}
	if n == 0 {
		return shape("no species")
	}
	if err := in.Grid.Validate(); err != nil {
		return shape("%v", err)
	}
	if err := in.PotentialR.CheckShape(n, m); err != nil {
		return shape("potential: %v", err)
	}
	if (in.LongR == nil) != (in.LongK == nil) {
		return shape("long-range potential given in only one space")
	}
	if in.LongR != nil {
		if err := in.LongR.CheckShape(n, m); err != nil {
			return shape("long-range potential: %v", err)
		}
		if err := in.LongK.CheckShape(n, m); err != nil {
			return shape("reciprocal long-range potential: %v", err)
		}
	}
	if cfg.InitialGuess != nil {
		if err := cfg.InitialGuess.CheckShape(n, m); err != nil {
			return shape("initial guess: %v", err)
		}
	}
	if len(in.Temperature) != n {
		return shape("temperature matrix has %d rows for %d species", len(in.Temperature), n)
	}

	bad := func(format string, args ...any) error {
		return &SolveError{Species: n, GridSize: m, Wrapped: fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)}
	}
	for a, row := range in.Temperature {
		if len(row) != n {
			return shape("temperature row %d has %d entries for %d species", a, len(row), n)
		}
		for b, t := range row {
			if !(t > 0) || math.IsInf(t, 0) {
				return bad("temperature[%d][%d] = %g", a, b, t)
			}
		}
	}
	for a, d := range in.Density {
		if !(d >= 0) || math.IsInf(d, 0) {
			return bad("density[%d] = %g", a, d)
		}
	}
	for name, f := range map[string]*field.Field{"potential": in.PotentialR, "long-range potential": in.LongR, "reciprocal long-range potential": in.LongK} {
		if f != nil && !f.IsFinite() {
			return bad("%s is not finite", name)
		}
	}
	return nil
}

// state is the working set of one solve. Everything radial is stored as
// N×N×M fields; the β factors are folded into the potentials once.
type state struct {
	n, m    int
	density []float64

	betaVs  *field.Field // βV_s(r)
	betaVlk *field.Field // βV̂_l(k)

	g     *field.Field
	gamma *field.Field // γ_s(r)
	// saturated counts the points of g held at the upper bound.
	saturated int

	cs, csk, gk *field.Field // scratch: c_s(r), ĉ_s(k), γ̂_s(k)
	oz          ozSolver
}

func newState(in Input, cfg Config) *state {
	n, m := in.species(), in.Grid.Len()
	st := &state{
		n:       n,
		m:       m,
		density: append([]float64(nil), in.Density...),
		betaVs:  field.New(n, m),
		betaVlk: field.New(n, m),
		g:       field.New(n, m),
		gamma:   field.New(n, m),
		cs:      field.New(n, m),
		csk:     field.New(n, m),
		gk:      field.New(n, m),
		oz:      newOZSolver(n, cfg.Regularization),
	}

	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			beta := 1 / (units.Boltzmann * in.Temperature[a][b])
			vs, vlk := st.betaVs.Slice(a, b), st.betaVlk.Slice(a, b)
			copy(vs, in.PotentialR.Slice(a, b))
			if in.LongR != nil {
				floats.Sub(vs, in.LongR.Slice(a, b))
				floats.AddScaled(vlk, beta, in.LongK.Slice(a, b))
			}
			floats.Scale(beta, vs)
		}
	}

	if cfg.InitialGuess != nil {
		// γ_s from inverting the closure; points in a hard core carry no
		// information and start from zero like a cold start.
		for i, g := range cfg.InitialGuess.Data {
			if g > 0 && math.Log(g) > MinExponent+1 {
				st.gamma.Data[i] = math.Log(g) + st.betaVs.Data[i]
			}
		}
	}
	for i, vs := range st.betaVs.Data {
		g, top := closure(vs, st.gamma.Data[i])
		st.g.Data[i] = g
		if top {
			st.saturated++
		}
	}
	return st
}

// closure evaluates g = exp(-βV_s + γ_s) with the exponent held to
// [MinExponent, MaxExponent] and reports whether the upper bound was hit.
func closure(betaVs, gamma float64) (float64, bool) {
	x := gamma - betaVs
	switch {
	case x > MaxExponent:
		return math.Exp(MaxExponent), true
	case x < MinExponent:
		return math.Exp(MinExponent), false
	}
	return math.Exp(x), false
}

// step performs one iteration and returns the residual. On an OZ failure
// it also returns the offending wavenumber. st.saturated is recounted.
func (st *state) step(tr *transform.Transformer, cfg Config) (float64, float64, error) {
	for i, g := range st.g.Data {
		st.cs.Data[i] = g - 1 - st.gamma.Data[i]
	}
	for a := 0; a < st.n; a++ {
		for b := a; b < st.n; b++ {
			if _, err := tr.Forward(st.csk.Slice(a, b), st.cs.Slice(a, b)); err != nil {
				return 0, 0, err
			}
			if a != b {
				copy(st.csk.Slice(b, a), st.csk.Slice(a, b))
			}
		}
	}

	k := tr.Grid().K
	for i := 0; i < st.m; i++ {
		if err := st.oz.solve(st, i); err != nil {
			return 0, k[i], err
		}
	}

	mix := cfg.Mixing
	residual := 0.0
	st.saturated = 0
	next := st.cs // c_s(r) is no longer needed this iteration
	for a := 0; a < st.n; a++ {
		for b := a; b < st.n; b++ {
			gs := next.Slice(a, b)
			if _, err := tr.Inverse(gs, st.gk.Slice(a, b)); err != nil {
				return 0, 0, err
			}
			g, gamma, vs := st.g.Slice(a, b), st.gamma.Slice(a, b), st.betaVs.Slice(a, b)
			for i := range g {
				gamma[i] = mix*gs[i] + (1-mix)*gamma[i]
				v, top := closure(vs[i], gamma[i])
				if top {
					st.saturated++
				}
				residual = math.Max(residual, math.Abs(v-g[i]))
				g[i] = v
			}
			if a != b {
				copy(st.g.Slice(b, a), g)
				copy(st.gamma.Slice(b, a), gamma)
			}
		}
	}
	if math.IsNaN(residual) || !st.gamma.IsFinite() {
		return 0, 0, fmt.Errorf("%w: non-finite indirect correlation", ErrDiverged)
	}
	return residual, 0, nil
}

// ozSolver owns the N×N scratch matrices of the per-wavenumber OZ solve.
type ozSolver struct {
	n     int
	reg   float64
	a, c  *mat.Dense
	h     *mat.Dense
	plain *mat.Dense
}

func newOZSolver(n int, reg float64) ozSolver {
	return ozSolver{
		n:     n,
		reg:   reg,
		a:     mat.NewDense(n, n, nil),
		c:     mat.NewDense(n, n, nil),
		h:     mat.NewDense(n, n, nil),
		plain: mat.NewDense(n, n, nil),
	}
}

// solve computes γ̂_s = ĥ - ĉ_s at wavenumber index i.
func (o *ozSolver) solve(st *state, i int) error {
	for a := 0; a < o.n; a++ {
		for b := 0; b < o.n; b++ {
			o.c.Set(a, b, st.csk.At(a, b, i)-st.betaVlk.At(a, b, i))
		}
	}
	// a = I - ĉ·diag(n)
	for a := 0; a < o.n; a++ {
		for b := 0; b < o.n; b++ {
			v := -o.c.At(a, b) * st.density[b]
			if a == b {
				v++
			}
			o.a.Set(a, b, v)
		}
	}
	if err := o.invert(); err != nil {
		return err
	}
	for a := 0; a < o.n; a++ {
		for b := a; b < o.n; b++ {
			h := 0.5 * (o.h.At(a, b) + o.h.At(b, a))
			v := h - st.csk.At(a, b, i)
			st.gk.Set(a, b, i, v)
			st.gk.Set(b, a, i, v)
		}
	}
	return nil
}

// invert solves a·h = c, retrying once with a regularized diagonal.
func (o *ozSolver) invert() error {
	err := o.h.Solve(o.a, o.c)
	if err == nil {
		return nil
	}
	if o.reg == 0 {
		return fmt.Errorf("%w: %v", ErrSingularMatrix, err)
	}
	o.plain.Copy(o.a)
	for d := 0; d < o.n; d++ {
		o.plain.Set(d, d, o.plain.At(d, d)+o.reg)
	}
	if err := o.h.Solve(o.plain, o.c); err != nil {
		return fmt.Errorf("%w: %v", ErrSingularMatrix, err)
	}
	return nil
}
