package plasma

import (
	"fmt"
	"math"

	"github.com/ctessum/unit"

	"github.com/san-kum/xrts/internal/units"
)

// MassWeightedT returns the N×N pair temperature matrix
// T_ab = (m_a T_b + m_b T_a) / (m_a + m_b).
func MassWeightedT(species []Species) [][]float64 {
	n := len(species)
	t := make([][]float64, n)
	for a := 0; a < n; a++ {
		t[a] = make([]float64, n)
		ma, ta := species[a].MassKg(), species[a].TemperatureK()
		for b := 0; b < n; b++ {
			mb, tb := species[b].MassKg(), species[b].TemperatureK()
			t[a][b] = (ma*tb + mb*ta) / (ma + mb)
		}
	}
	return t
}

// Densities returns the number densities of species in m^-3.
func Densities(species []Species) []float64 {
	n := make([]float64, len(species))
	for i, s := range species {
		n[i] = s.NumberDensity()
	}
	return n
}

// ReducedMass of two species in kg.
func ReducedMass(a, b Species) float64 {
	ma, mb := a.MassKg(), b.MassKg()
	return ma * mb / (ma + mb)
}

// ThermalWavelength returns λ = ħ / √(2 μ k_B T) for a reduced mass μ (kg)
// and temperature T (K).
func ThermalWavelength(mu, t float64) float64 {
	return units.ReducedPlanck / math.Sqrt(2*mu*units.Boltzmann*t)
}

// WignerSeitzRadius returns a = (3 / (4π n))^(1/3) for n in m^-3.
func WignerSeitzRadius(n float64) float64 {
	return math.Cbrt(3 / (4 * math.Pi * n))
}

// CouplingParameter returns Γ = Z² e² / (4πε0 a k_B T).
func CouplingParameter(z, n, t float64) float64 {
	return z * z * units.CoulombConstant / (WignerSeitzRadius(n) * units.Boltzmann * t)
}

// DensityForCoupling inverts CouplingParameter for the number density.
func DensityForCoupling(gamma, z, t float64) float64 {
	a := z * z * units.CoulombConstant / (gamma * units.Boltzmann * t)
	return 3 / (4 * math.Pi * a * a * a)
}

// DebyeWavenumber returns k_D = √(Σ n_a Z_a² e² / (ε0 k_B T_a)).
func DebyeWavenumber(species []Species) float64 {
	sum := 0.0
	for _, s := range species {
		q := s.Charge * units.ElementaryCharge
		sum += s.NumberDensity() * q * q / (units.VacuumPermittivity * units.Boltzmann * s.TemperatureK())
	}
	return math.Sqrt(sum)
}

// PlasmaFrequency returns ω_pe = √(e² n_e / (ε0 m_e)).
func PlasmaFrequency(electronDensity *unit.Unit) (*unit.Unit, error) {
	ne, err := units.Value(electronDensity, units.NumberDensity)
	if err != nil {
		return nil, fmt.Errorf("plasma frequency: %w", err)
	}
	e := units.ElementaryCharge
	w := math.Sqrt(e * e * ne / (units.VacuumPermittivity * units.ElectronMass))
	return unit.New(w, units.Frequency), nil
}

// ThomsonMomentumTransfer returns k = 2E/(ħc) sin(θ/2), assuming the photon
// energy is barely changed by the scattering event.
func ThomsonMomentumTransfer(energy, angle *unit.Unit) (*unit.Unit, error) {
	e, err := units.Value(energy, units.Energy)
	if err != nil {
		return nil, fmt.Errorf("momentum transfer: energy: %w", err)
	}
	theta, err := units.Value(angle, units.Angle)
	if err != nil {
		return nil, fmt.Errorf("momentum transfer: angle: %w", err)
	}
	k := 2 * e / (units.ReducedPlanck * units.SpeedOfLight) * math.Sin(theta/2)
	return units.PerMeter(k), nil
}
