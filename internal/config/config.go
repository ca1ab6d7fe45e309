package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/unit"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/xrts/internal/grid"
	"github.com/san-kum/xrts/internal/hnc"
	"github.com/san-kum/xrts/internal/plasma"
	"github.com/san-kum/xrts/internal/potential"
	"github.com/san-kum/xrts/internal/units"
)

const (
	DefaultPoints        = 4096
	DefaultRMax          = 10.0 // Å
	DefaultTemperatureEV = 10.0
	DefaultEnergyEV      = 8500.0
	DefaultAngleDeg      = 160.0
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Name       string                 `yaml:"name" toml:"name"`
	Plasma     PlasmaConfig           `yaml:"plasma" toml:"plasma"`
	Potentials potential.AssemblySpec `yaml:"potentials" toml:"potentials"`
	Grid       GridConfig             `yaml:"grid" toml:"grid"`
	Solver     SolverConfig           `yaml:"solver" toml:"solver"`
	Scattering ScatteringConfig       `yaml:"scattering" toml:"scattering"`
}

// IonConfig describes one ion species. Exactly one of NumberDensity,
// MassDensity and Coupling sets its density; a zero temperature inherits
// the electron temperature.
type IonConfig struct {
	Element       string  `yaml:"element" toml:"element"`
	Charge        float64 `yaml:"charge" toml:"charge"`
	NumberDensity float64 `yaml:"number_density,omitempty" toml:"number_density,omitempty"` // cm^-3
	MassDensity   float64 `yaml:"mass_density,omitempty" toml:"mass_density,omitempty"`     // g/cm^3
	Coupling      float64 `yaml:"coupling,omitempty" toml:"coupling,omitempty"`
	TemperatureEV float64 `yaml:"temperature_ev,omitempty" toml:"temperature_ev,omitempty"`
	TemperatureK  float64 `yaml:"temperature_k,omitempty" toml:"temperature_k,omitempty"`
}

type PlasmaConfig struct {
	Ions                  []IonConfig `yaml:"ions" toml:"ions"`
	ElectronTemperatureEV float64     `yaml:"electron_temperature_ev" toml:"electron_temperature_ev"`
	// EffectiveTemperatures replaces the configured temperatures by
	// Gregori's effective ones: electron degeneracy enters T_e and the
	// zero-point motion of the ions enters every T_i.
	EffectiveTemperatures bool `yaml:"effective_temperatures,omitempty" toml:"effective_temperatures,omitempty"`
}

// GridConfig sets the radial extent either in Å or, when RMaxWignerSeitz is
// positive, in Wigner-Seitz radii of the total ion density.
type GridConfig struct {
	RMax            float64 `yaml:"r_max" toml:"r_max"`
	RMaxWignerSeitz float64 `yaml:"r_max_ws,omitempty" toml:"r_max_ws,omitempty"`
	Points          int     `yaml:"points" toml:"points"`
}

type SolverConfig struct {
	MaxIterations      int     `yaml:"max_iterations" toml:"max_iterations"`
	Tolerance          float64 `yaml:"tolerance" toml:"tolerance"`
	Mixing             float64 `yaml:"mixing" toml:"mixing"`
	Regularization     float64 `yaml:"regularization" toml:"regularization"`
	DivergencePatience int     `yaml:"divergence_patience" toml:"divergence_patience"`
	LogEvery           int     `yaml:"log_every" toml:"log_every"`
}

type ScatteringConfig struct {
	EnergyEV float64 `yaml:"energy_ev" toml:"energy_ev"`
	AngleDeg float64 `yaml:"angle_deg" toml:"angle_deg"`
}

func DefaultConfig() *Config {
	solver := hnc.DefaultConfig()
	return &Config{
		Name: "hydrogen",
		Plasma: PlasmaConfig{
			Ions:                  []IonConfig{{Element: "H", Charge: 1, NumberDensity: 1e23}},
			ElectronTemperatureEV: DefaultTemperatureEV,
		},
		Potentials: potential.DefaultAssembly().Spec(),
		Grid:       GridConfig{RMax: DefaultRMax, Points: DefaultPoints},
		Solver: SolverConfig{
			MaxIterations:  solver.MaxIterations,
			Tolerance:      solver.Tolerance,
			Mixing:         solver.Mixing,
			Regularization: solver.Regularization,
			LogEvery:       solver.LogEvery,
		},
		Scattering: ScatteringConfig{EnergyEV: DefaultEnergyEV, AngleDeg: DefaultAngleDeg},
	}
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	}
	return 0, fmt.Errorf("config: unsupported file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
}

// Load reads a YAML or TOML file over the defaults.
func Load(path string) (*Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	switch f {
	case formatTOML:
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	switch f {
	case formatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Plasma.Ions = append([]IonConfig(nil), c.Plasma.Ions...)
	return &out
}

func (c *Config) Validate() error {
	if len(c.Plasma.Ions) == 0 {
		return fmt.Errorf("%w: no ion species", ErrInvalid)
	}
	if !(c.Plasma.ElectronTemperatureEV > 0) {
		return fmt.Errorf("%w: electron temperature must be positive", ErrInvalid)
	}
	for i, ion := range c.Plasma.Ions {
		set := 0
		for _, v := range []float64{ion.NumberDensity, ion.MassDensity, ion.Coupling} {
			if v < 0 {
				return fmt.Errorf("%w: ion %d (%s): negative density", ErrInvalid, i, ion.Element)
			}
			if v > 0 {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("%w: ion %d (%s): set exactly one of number_density, mass_density, coupling", ErrInvalid, i, ion.Element)
		}
		if ion.TemperatureEV < 0 || ion.TemperatureK < 0 || (ion.TemperatureEV > 0 && ion.TemperatureK > 0) {
			return fmt.Errorf("%w: ion %d (%s): give at most one non-negative temperature", ErrInvalid, i, ion.Element)
		}
	}
	if _, err := c.State(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := c.Potentials.Assembly(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Grid.Points < 2 || (!(c.Grid.RMax > 0) && !(c.Grid.RMaxWignerSeitz > 0)) {
		return fmt.Errorf("%w: grid needs at least 2 points and a positive extent", ErrInvalid)
	}
	s := c.Solver
	switch {
	case s.MaxIterations <= 0:
		return fmt.Errorf("%w: max_iterations must be positive", ErrInvalid)
	case !(s.Tolerance > 0):
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalid)
	case !(s.Mixing > 0 && s.Mixing <= 1):
		return fmt.Errorf("%w: mixing must be in (0, 1]", ErrInvalid)
	case s.Regularization < 0 || s.DivergencePatience < 0 || s.LogEvery < 0:
		return fmt.Errorf("%w: regularization, divergence_patience and log_every must not be negative", ErrInvalid)
	}
	if c.Scattering.EnergyEV < 0 || c.Scattering.AngleDeg < 0 || c.Scattering.AngleDeg > 180 {
		return fmt.Errorf("%w: scattering energy must be non-negative and the angle within [0, 180]", ErrInvalid)
	}
	return nil
}

func (ion IonConfig) temperature(electronEV float64) *unit.Unit {
	switch {
	case ion.TemperatureK > 0:
		return units.Kelvin(ion.TemperatureK)
	case ion.TemperatureEV > 0:
		return units.ElectronVoltsTemperature(ion.TemperatureEV)
	}
	return units.ElectronVoltsTemperature(electronEV)
}

// State builds the plasma state described by the configuration.
func (c *Config) State() (*plasma.State, error) {
	ions := make([]plasma.Species, 0, len(c.Plasma.Ions))
	for _, ic := range c.Plasma.Ions {
		el, err := plasma.LookupElement(ic.Element)
		if err != nil {
			return nil, err
		}
		temp := ic.temperature(c.Plasma.ElectronTemperatureEV)

		var density *unit.Unit
		switch {
		case ic.NumberDensity > 0:
			density = units.PerCubicCentimeter(ic.NumberDensity)
		case ic.MassDensity > 0:
			n := units.MustValue(units.GramsPerCubicCentimeter(ic.MassDensity), units.MassDensity) /
				units.MustValue(el.Mass(), units.Mass)
			density = units.PerCubicMeter(n)
		default:
			t := units.MustValue(temp, units.Temperature)
			density = units.PerCubicMeter(plasma.DensityForCoupling(ic.Coupling, ic.Charge, t))
		}

		ion, err := plasma.NewIon(el, ic.Charge, density, temp)
		if err != nil {
			return nil, err
		}
		ions = append(ions, ion)
	}
	st, err := plasma.NewState(ions, units.ElectronVoltsTemperature(c.Plasma.ElectronTemperatureEV))
	if err != nil || !c.Plasma.EffectiveTemperatures {
		return st, err
	}
	return st.WithEffectiveTemperatures()
}

// GridFor builds the radial grid for st.
func (c *Config) GridFor(st *plasma.State) (grid.Grid, error) {
	rMax := c.Grid.RMax * units.Angstrom
	if c.Grid.RMaxWignerSeitz > 0 {
		n := 0.0
		for _, ion := range st.Ions {
			n += ion.NumberDensity()
		}
		rMax = c.Grid.RMaxWignerSeitz * plasma.WignerSeitzRadius(n)
	}
	return grid.New(rMax, c.Grid.Points)
}

// HNC converts the solver section. The divergence guard is attached by the
// caller, since a guard carries per-solve state.
func (c *Config) HNC() hnc.Config {
	return hnc.Config{
		MaxIterations:  c.Solver.MaxIterations,
		Tolerance:      c.Solver.Tolerance,
		Mixing:         c.Solver.Mixing,
		Regularization: c.Solver.Regularization,
		LogEvery:       c.Solver.LogEvery,
	}
}

// ScatteringK returns the momentum transfer probed by the configured
// scattering geometry in m^-1.
func (c *Config) ScatteringK() (float64, error) {
	k, err := plasma.ThomsonMomentumTransfer(units.ElectronVolts(c.Scattering.EnergyEV), units.Degrees(c.Scattering.AngleDeg))
	if err != nil {
		return 0, err
	}
	return k.Value(), nil
}
