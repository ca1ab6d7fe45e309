package plasma

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/xrts/internal/units"
)

func beryllium(t *testing.T, ti float64) *State {
	t.Helper()
	be, err := LookupElement("Be")
	require.NoError(t, err)
	ion, err := NewIon(be, 2.5, units.PerCubicCentimeter(1.21e23), units.ElectronVoltsTemperature(ti))
	require.NoError(t, err)
	st, err := NewState([]Species{ion}, units.ElectronVoltsTemperature(12))
	require.NoError(t, err)
	return st
}

func TestNewSpeciesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"wrong mass dims", func() error {
			_, err := NewSpecies("x", units.Meters(1), 1, units.PerCubicMeter(1), units.Kelvin(1))
			return err
		}},
		{"negative density", func() error {
			_, err := NewSpecies("x", units.Kilograms(1), 1, units.PerCubicMeter(-1), units.Kelvin(1))
			return err
		}},
		{"nil temperature", func() error {
			_, err := NewSpecies("x", units.Kilograms(1), 1, units.PerCubicMeter(1), nil)
			return err
		}},
		{"charge above Z", func() error {
			h, _ := LookupElement("H")
			_, err := NewIon(h, 2, units.PerCubicMeter(1), units.Kelvin(1))
			return err
		}},
		{"unknown element", func() error {
			_, err := LookupElement("Xx")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidSpecies))
		})
	}
}

func TestStateSpeciesOrdering(t *testing.T) {
	st := beryllium(t, 12)

	require.InEpsilon(t, 2.5*1.21e29, st.ElectronDensity(), 1e-12)

	sp := st.Species(true)
	require.Len(t, sp, 2)
	require.Equal(t, "Be", sp[0].Name)
	require.True(t, sp[1].IsElectron())
	require.False(t, sp[0].IsElectron())

	require.Len(t, st.Species(false), 1)
}

func TestWithIonTemperatureDoesNotAlias(t *testing.T) {
	st := beryllium(t, 12)
	hot, err := st.WithIonTemperature(0, units.ElectronVoltsTemperature(3))
	require.NoError(t, err)

	require.InEpsilon(t, 12*11604.518, st.Ions[0].TemperatureK(), 1e-6)
	require.InEpsilon(t, 3*11604.518, hot.Ions[0].TemperatureK(), 1e-6)

	_, err = st.WithIonTemperature(3, units.Kelvin(1))
	require.Error(t, err)
}

func TestMassWeightedT(t *testing.T) {
	st := beryllium(t, 3)
	sp := st.Species(true)
	tm := MassWeightedT(sp)

	require.InEpsilon(t, sp[0].TemperatureK(), tm[0][0], 1e-12)
	require.InEpsilon(t, sp[1].TemperatureK(), tm[1][1], 1e-12)
	require.Equal(t, tm[0][1], tm[1][0])

	// the heavy partner carries the light species' temperature
	require.InEpsilon(t, sp[1].TemperatureK(), tm[0][1], 1e-3)
}

func TestCouplingRoundTrip(t *testing.T) {
	temp := units.MustValue(units.ElectronVoltsTemperature(10), units.Temperature)
	n := DensityForCoupling(30, 1, temp)
	require.InEpsilon(t, 30, CouplingParameter(1, n, temp), 1e-12)
}

func TestPlasmaFrequency(t *testing.T) {
	w, err := PlasmaFrequency(units.PerCubicCentimeter(1e21))
	require.NoError(t, err)
	// ω_pe ≈ 5.64e4 √n[cm^-3] rad/s
	require.InEpsilon(t, 5.64e4*math.Sqrt(1e21), w.Value(), 1e-3)

	_, err = PlasmaFrequency(units.Kelvin(1))
	require.Error(t, err)
}

func TestThomsonMomentumTransfer(t *testing.T) {
	k, err := ThomsonMomentumTransfer(units.ElectronVolts(8500), units.Degrees(180))
	require.NoError(t, err)
	want := 2 * 8500 * units.ElectronVolt / (units.ReducedPlanck * units.SpeedOfLight)
	require.InEpsilon(t, want, k.Value(), 1e-12)

	k, err = ThomsonMomentumTransfer(units.ElectronVolts(8500), units.Degrees(0))
	require.NoError(t, err)
	require.Zero(t, k.Value())
}

func TestDebyeWavenumber(t *testing.T) {
	st := beryllium(t, 12)
	kd := DebyeWavenumber(st.Species(true))
	require.Greater(t, kd, 0.0)
	ionOnly := DebyeWavenumber(st.Species(false))
	require.Less(t, ionOnly, kd)
}

func TestEffectiveTemperatures(t *testing.T) {
	eV := units.ElectronVolt / units.Boltzmann
	st := beryllium(t, 12)
	ne := st.ElectronDensity()

	require.InEpsilon(t, 16.43*eV, FermiTemperature(ne), 1e-3)
	require.InEpsilon(t, 15.08*eV, QuantumElectronTemperature(ne), 1e-3)
	teff := EffectiveElectronTemperature(12*eV, ne)
	require.InEpsilon(t, 19.27*eV, teff, 1e-3)

	td := BohmStaverDebyeTemperature(teff, ne, st.Ions[0])
	require.InEpsilon(t, 0.1897*eV, td, 1e-3)
	require.InEpsilon(t, 12*eV, EffectiveIonTemperature(12*eV, td), 1e-4)
	// the zero-point term dominates for a cold lattice
	require.InEpsilon(t, math.Sqrt(IonZeroPointFraction)*td, EffectiveIonTemperature(0, td), 1e-12)

	eff, err := st.WithEffectiveTemperatures()
	require.NoError(t, err)
	require.InEpsilon(t, teff, units.MustValue(eff.ElectronTemperature, units.Temperature), 1e-12)
	require.Greater(t, eff.Ions[0].TemperatureK(), st.Ions[0].TemperatureK())
	require.InEpsilon(t, 12*eV, st.Ions[0].TemperatureK(), 1e-12, "original state modified")
}

func TestQuantumTemperatureVanishesWhenDilute(t *testing.T) {
	// r_s far beyond the range of the fit
	require.Zero(t, QuantumElectronTemperature(1e15))

	eV := units.ElectronVolt / units.Boltzmann
	require.InEpsilon(t, 100*eV, EffectiveElectronTemperature(100*eV, 1e20), 1e-6)
}
