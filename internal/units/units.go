// Package units is the physical-quantity layer of xrts.
//
// Every physical input that crosses a package boundary is carried as a
// *unit.Unit (github.com/ctessum/unit): an SI value tagged with its
// dimensions. Numerical kernels unwrap quantities exactly once, through
// [Value], and then work on plain float64 SI numbers.
//
// There is no process-wide registry: dimensions are plain values and
// constants below are plain float64 SI numbers.
package units

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/unit"
)

// ErrDimension is returned when a quantity does not carry the expected
// dimensions.
var ErrDimension = errors.New("units: dimension mismatch")

// CODATA 2018 constants in SI units.
const (
	Boltzmann          = 1.380649e-23     // J/K
	ElementaryCharge   = 1.602176634e-19  // C
	VacuumPermittivity = 8.8541878128e-12 // F/m
	ReducedPlanck      = 1.054571817e-34  // J s
	ElectronMass       = 9.1093837015e-31 // kg
	AtomicMassUnit     = 1.66053906660e-27
	BohrRadius         = 5.29177210903e-11 // m
	SpeedOfLight       = 299792458.0       // m/s
	FineStructure      = 7.2973525693e-3
	Angstrom           = 1e-10
	ElectronVolt       = ElementaryCharge // J
)

// CoulombConstant is e²/(4πε0) in J·m.
var CoulombConstant = ElementaryCharge * ElementaryCharge / (4 * math.Pi * VacuumPermittivity)

// Dimension sets used by xrts.
var (
	Dimless       = unit.Dimless
	Length        = unit.Meter
	InverseLength = unit.Dimensions{unit.LengthDim: -1}
	NumberDensity = unit.Dimensions{unit.LengthDim: -3}
	MassDensity   = unit.KilogramPerMeter3
	Mass          = unit.Kilogram
	Temperature   = unit.Kelvin
	Energy        = unit.Joule
	Angle         = unit.Dimensions{unit.AngleDim: 1}
	Frequency     = unit.Herz
)

func Meters(v float64) *unit.Unit    { return unit.New(v, Length) }
func Angstroms(v float64) *unit.Unit { return unit.New(v*Angstrom, Length) }
func BohrRadii(v float64) *unit.Unit { return unit.New(v*BohrRadius, Length) }

func PerMeter(v float64) *unit.Unit { return unit.New(v, InverseLength) }

func PerCubicMeter(v float64) *unit.Unit { return unit.New(v, NumberDensity) }

// PerCubicCentimeter converts a number density given in cm^-3.
func PerCubicCentimeter(v float64) *unit.Unit { return unit.New(v*1e6, NumberDensity) }

func Kilograms(v float64) *unit.Unit { return unit.New(v, Mass) }

// AtomicMasses converts a mass given in unified atomic mass units.
func AtomicMasses(v float64) *unit.Unit { return unit.New(v*AtomicMassUnit, Mass) }

func GramsPerCubicCentimeter(v float64) *unit.Unit { return unit.New(v*1e3, MassDensity) }

func Kelvin(v float64) *unit.Unit { return unit.New(v, Temperature) }

// ElectronVoltsTemperature returns the temperature T with k_B T = v eV.
func ElectronVoltsTemperature(v float64) *unit.Unit {
	return unit.New(v*ElectronVolt/Boltzmann, Temperature)
}

func Joules(v float64) *unit.Unit        { return unit.New(v, Energy) }
func ElectronVolts(v float64) *unit.Unit { return unit.New(v*ElectronVolt, Energy) }

func Radians(v float64) *unit.Unit { return unit.New(v, Angle) }
func Degrees(v float64) *unit.Unit { return unit.New(v*math.Pi/180, Angle) }

// Value returns the SI value of q after checking its dimensions.
func Value(q *unit.Unit, d unit.Dimensions) (float64, error) {
	if q == nil {
		return 0, fmt.Errorf("%w: nil quantity, want %s", ErrDimension, d)
	}
	if err := q.Check(d); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDimension, err)
	}
	return q.Value(), nil
}

// MustValue is like Value but panics on a dimension mismatch. It is meant
// for quantities whose dimensions were already validated at construction.
func MustValue(q *unit.Unit, d unit.Dimensions) float64 {
	v, err := Value(q, d)
	if err != nil {
		panic(err)
	}
	return v
}

// ThermalEnergy returns k_B T in joules for a temperature quantity.
func ThermalEnergy(t *unit.Unit) (float64, error) {
	v, err := Value(t, Temperature)
	if err != nil {
		return 0, err
	}
	return Boltzmann * v, nil
}
