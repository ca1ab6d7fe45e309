package config

import (
	"sort"

	"github.com/san-kum/xrts/internal/potential"
)

func coulombEverywhere(alpha float64) potential.AssemblySpec {
	return potential.AssemblySpec{
		IonIon: "coulomb", ElectronIon: "coulomb", ElectronElectron: "coulomb",
		LongRange: "coulomb", Alpha: alpha, Electrons: "off",
	}
}

func berylliumGregori(name string, effective bool) *Config {
	return &Config{
		Name: name,
		Plasma: PlasmaConfig{
			Ions:                  []IonConfig{{Element: "Be", Charge: 2.5, NumberDensity: 1.21e23}},
			ElectronTemperatureEV: 12,
			EffectiveTemperatures: effective,
		},
		Potentials: potential.AssemblySpec{
			IonIon: "kelbg", ElectronIon: "klimontovich_kraeft", ElectronElectron: "kelbg",
			LongRange: "coulomb", Alpha: 2, Electrons: "spin_averaged",
		},
		Grid:       GridConfig{RMax: 250, Points: 8192},
		Solver:     SolverConfig{MaxIterations: 3000, Tolerance: 1e-6, Mixing: 0.3, Regularization: 1e-12, DivergencePatience: 200, LogEvery: 100},
		Scattering: ScatteringConfig{EnergyEV: 6180, AngleDeg: 40},
	}
}

var Presets = map[string]*Config{
	// strongly coupled one-component hydrogen
	"hydrogen_gamma30": {
		Name: "hydrogen_gamma30",
		Plasma: PlasmaConfig{
			Ions:                  []IonConfig{{Element: "H", Charge: 1, Coupling: 30}},
			ElectronTemperatureEV: 10,
		},
		Potentials: coulombEverywhere(20),
		Grid:       GridConfig{RMax: 5.29177, Points: 4096},
		Solver:     SolverConfig{MaxIterations: 3000, Tolerance: 1e-6, Mixing: 0.2, Regularization: 1e-12, DivergencePatience: 200, LogEvery: 100},
		Scattering: ScatteringConfig{EnergyEV: 8500, AngleDeg: 160},
	},
	// weakly coupled one-component hydrogen, close to Debye-Hückel
	"ocp_weak": {
		Name: "ocp_weak",
		Plasma: PlasmaConfig{
			Ions:                  []IonConfig{{Element: "H", Charge: 1, Coupling: 0.01}},
			ElectronTemperatureEV: 10,
		},
		Potentials: coulombEverywhere(0.007),
		Grid:       GridConfig{RMaxWignerSeitz: 250, Points: 4096},
		Solver:     SolverConfig{MaxIterations: 1000, Tolerance: 1e-6, Mixing: 0.5, Regularization: 1e-12, LogEvery: 100},
		Scattering: ScatteringConfig{EnergyEV: 8500, AngleDeg: 20},
	},
	// Be at 1.21e23 cm^-3 and 12 eV with spin-averaged electrons
	"beryllium_gregori": berylliumGregori("beryllium_gregori", false),
	// the same with Gregori's effective electron and ion temperatures
	"beryllium_gregori_effective": berylliumGregori("beryllium_gregori_effective", true),
	// hydrogen with explicit electrons
	"hydrogen_two_component": {
		Name: "hydrogen_two_component",
		Plasma: PlasmaConfig{
			Ions:                  []IonConfig{{Element: "H", Charge: 1, NumberDensity: 1e23}},
			ElectronTemperatureEV: 10,
		},
		Potentials: potential.AssemblySpec{
			IonIon: "coulomb", ElectronIon: "klimontovich_kraeft", ElectronElectron: "kelbg",
			LongRange: "coulomb", Alpha: 2, Electrons: "spin_averaged",
		},
		Grid:       GridConfig{RMax: 100, Points: 4096},
		Solver:     SolverConfig{MaxIterations: 3000, Tolerance: 1e-6, Mixing: 0.3, Regularization: 1e-12, DivergencePatience: 200, LogEvery: 100},
		Scattering: ScatteringConfig{EnergyEV: 8500, AngleDeg: 160},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
