// Package experiment wires one configuration through the whole pipeline:
// plasma state, potential assembly, HNC solve, structure factors and the
// structure factor at the probed wavenumber.
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/xrts/internal/config"
	"github.com/san-kum/xrts/internal/field"
	"github.com/san-kum/xrts/internal/grid"
	"github.com/san-kum/xrts/internal/hnc"
	"github.com/san-kum/xrts/internal/plasma"
	"github.com/san-kum/xrts/internal/potential"
	"github.com/san-kum/xrts/internal/transform"
)

type Experiment struct {
	Log       logrus.FieldLogger
	cfg       *config.Config
	observers []hnc.Observer
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		Log:       logrus.StandardLogger(),
		cfg:       cfg.Clone(),
		observers: make([]hnc.Observer, 0),
	}
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// AddObserver attaches o to every solve this experiment runs.
func (e *Experiment) AddObserver(o hnc.Observer) { e.observers = append(e.observers, o) }

// Outcome is everything a run produces.
type Outcome struct {
	Config   *config.Config
	State    *plasma.State
	Assembly potential.Assembly
	Species  []plasma.Species
	Grid     grid.Grid
	Result   *hnc.Result
	// S holds S_ab(k) on Grid.K.
	S *field.Field
	// K is the momentum transfer of the scattering geometry in m^-1, and
	// SAtK the structure factors interpolated there. Both are zero when no
	// geometry is configured.
	K       float64
	SAtK    [][]float64
	Started time.Time
	Elapsed time.Duration
}

// Name returns the configuration name, or "run".
func (o *Outcome) Name() string {
	if o.Config == nil || o.Config.Name == "" {
		return "run"
	}
	return o.Config.Name
}

// SpeciesNames lists species labels in matrix order.
func (o *Outcome) SpeciesNames() []string {
	names := make([]string, len(o.Species))
	for i, s := range o.Species {
		names[i] = s.Name
	}
	return names
}

// Run executes the pipeline. A solve that stops at the iteration cap is not
// an error; check Outcome.Result.Converged.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	started := time.Now()
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := e.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("run", cfg.Name)

	st, err := cfg.State()
	if err != nil {
		return nil, err
	}
	g, err := cfg.GridFor(st)
	if err != nil {
		return nil, err
	}
	asm, err := cfg.Potentials.Assembly()
	if err != nil {
		return nil, err
	}
	m, err := asm.Assemble(st, g)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", cfg.Name, err)
	}

	solver := hnc.New()
	solver.Log = log
	for _, o := range e.observers {
		solver.AddObserver(o)
	}
	if cfg.Solver.DivergencePatience > 0 {
		solver.AddObserver(hnc.NewDivergenceGuard(cfg.Solver.DivergencePatience))
	}

	in := hnc.Input{
		PotentialR:  m.FullR,
		LongR:       m.LongR,
		LongK:       m.LongK,
		Grid:        g,
		Temperature: m.Temperatures(),
		Density:     m.Densities(),
	}
	log.WithFields(logrus.Fields{
		"species": len(m.Species),
		"points":  g.Len(),
		"r_max":   g.RMax(),
	}).Info("solving")
	res, err := solver.Solve(ctx, in, cfg.HNC())
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", cfg.Name, err)
	}

	tr, err := transform.New(g)
	if err != nil {
		return nil, err
	}
	s, err := hnc.StructureFactors(res.G, in.Density, tr)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", cfg.Name, err)
	}

	out := &Outcome{
		Config:   cfg,
		State:    st,
		Assembly: asm,
		Species:  m.Species,
		Grid:     g,
		Result:   res,
		S:        s,
		Started:  started,
	}
	if cfg.Scattering.EnergyEV > 0 {
		if out.K, err = cfg.ScatteringK(); err != nil {
			return nil, err
		}
		if out.K > 0 {
			if out.SAtK, err = hnc.Interpolate(s, g, out.K); err != nil {
				return nil, err
			}
		}
	}
	out.Elapsed = time.Since(started)

	if !res.Converged {
		log.WithError(res.Err()).Warn("structure factors from an unconverged solve")
	}
	return out, nil
}
