package plasma

import (
	"fmt"
	"math"

	"github.com/san-kum/xrts/internal/units"
)

// Effective temperatures after Gregori et al., Phys. Rev. E 67, 026412
// (2003) and High Energy Density Phys. 3, 99 (2007). All temperatures are
// in K, densities in m^-3 and masses in kg.

// IonZeroPointFraction is γ0 in T_i,eff = √(T_i² + γ0·T_D²).
const IonZeroPointFraction = 0.152

// FermiTemperature returns T_F = ħ²(3π² n_e)^(2/3) / (2 m_e k_B).
func FermiTemperature(ne float64) float64 {
	kf2 := math.Pow(3*math.Pi*math.Pi*ne, 2.0/3)
	return units.ReducedPlanck * units.ReducedPlanck * kf2 / (2 * units.ElectronMass * units.Boltzmann)
}

// QuantumElectronTemperature returns T_q = T_F / (1.3251 - 0.1779·√r_s),
// r_s being the electron Wigner-Seitz radius in Bohr radii. The fit has
// no meaning past r_s ≈ 55, where T_F is negligible anyway; it returns 0
// there.
func QuantumElectronTemperature(ne float64) float64 {
	rs := WignerSeitzRadius(ne) / units.BohrRadius
	d := 1.3251 - 0.1779*math.Sqrt(rs)
	if d <= 0 {
		return 0
	}
	return FermiTemperature(ne) / d
}

// EffectiveElectronTemperature returns √(T_e² + T_q²).
func EffectiveElectronTemperature(te, ne float64) float64 {
	return math.Hypot(te, QuantumElectronTemperature(ne))
}

// BohmStaverDebyeTemperature returns ħω(k_D)/k_B for the Bohm-Staver ion
// acoustic branch ω² = ω_pi² k² / (k² + k_e²), evaluated at the Debye
// wavenumber k_D = (6π² n_i)^(1/3). te sets the electron screening k_e and
// is normally the effective electron temperature.
func BohmStaverDebyeTemperature(te, ne float64, ion Species) float64 {
	e := units.ElementaryCharge
	q := ion.Charge * e
	ni := ion.NumberDensity()
	wpi2 := q * q * ni / (units.VacuumPermittivity * ion.MassKg())
	ke2 := ne * e * e / (units.VacuumPermittivity * units.Boltzmann * te)
	kd2 := math.Pow(6*math.Pi*math.Pi*ni, 2.0/3)
	w := math.Sqrt(wpi2 * kd2 / (kd2 + ke2))
	return units.ReducedPlanck * w / units.Boltzmann
}

// EffectiveIonTemperature returns √(T_i² + γ0·T_D²).
func EffectiveIonTemperature(ti, td float64) float64 {
	return math.Sqrt(ti*ti + IonZeroPointFraction*td*td)
}

// WithEffectiveTemperatures returns a copy of s whose electron temperature
// includes the degeneracy correction and whose ion temperatures include
// the zero-point motion of the ion lattice.
func (s *State) WithEffectiveTemperatures() (*State, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	ne := s.ElectronDensity()
	te, err := units.Value(s.ElectronTemperature, units.Temperature)
	if err != nil {
		return nil, fmt.Errorf("effective temperatures: %w", err)
	}
	teff := EffectiveElectronTemperature(te, ne)

	c := s.Clone()
	c.ElectronTemperature = units.Kelvin(teff)
	for i, ion := range c.Ions {
		td := BohmStaverDebyeTemperature(teff, ne, ion)
		c.Ions[i].Temperature = units.Kelvin(EffectiveIonTemperature(ion.TemperatureK(), td))
	}
	return c, nil
}
