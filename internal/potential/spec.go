package potential

import (
	"fmt"

	"github.com/san-kum/xrts/internal/units"
)

// Spec is the persisted form of a Potential: plain data plus the variant
// tag, resolved back through the same table used for evaluation. Alpha is
// given in Å^-1 and Kappa in m^-1.
type Spec struct {
	Kind      string  `json:"kind" yaml:"kind" toml:"kind"`
	Alpha     float64 `json:"alpha" yaml:"alpha" toml:"alpha"`
	Kappa     float64 `json:"kappa,omitempty" yaml:"kappa,omitempty" toml:"kappa,omitempty"`
	Electrons string  `json:"electrons" yaml:"electrons" toml:"electrons"`
}

func (p Potential) Spec() Spec {
	return Spec{Kind: p.Kind.String(), Alpha: p.Alpha * units.Angstrom, Kappa: p.Kappa, Electrons: p.Electrons.String()}
}

func FromSpec(s Spec) (Potential, error) {
	k, err := ParseKind(s.Kind)
	if err != nil {
		return Potential{}, err
	}
	mode, err := ParseElectronMode(s.Electrons)
	if err != nil {
		return Potential{}, err
	}
	p := Potential{Kind: k, Alpha: s.Alpha / units.Angstrom, Kappa: s.Kappa, Electrons: mode}
	if p.Alpha == 0 {
		p.Alpha = DefaultAlpha
	}
	if _, err := p.variant(); err != nil {
		return Potential{}, err
	}
	return p, nil
}

// AssemblySpec is the persisted and configured form of an Assembly, with
// the same units as Spec.
type AssemblySpec struct {
	IonIon           string  `json:"ion_ion" yaml:"ion_ion" toml:"ion_ion"`
	ElectronIon      string  `json:"electron_ion" yaml:"electron_ion" toml:"electron_ion"`
	ElectronElectron string  `json:"electron_electron" yaml:"electron_electron" toml:"electron_electron"`
	LongRange        string  `json:"long_range" yaml:"long_range" toml:"long_range"`
	Alpha            float64 `json:"alpha" yaml:"alpha" toml:"alpha"`
	Kappa            float64 `json:"kappa,omitempty" yaml:"kappa,omitempty" toml:"kappa,omitempty"`
	Electrons        string  `json:"electrons" yaml:"electrons" toml:"electrons"`
}

func (a Assembly) Spec() AssemblySpec {
	return AssemblySpec{
		IonIon:           a.IonIon.String(),
		ElectronIon:      a.ElectronIon.String(),
		ElectronElectron: a.ElectronElectron.String(),
		LongRange:        a.LongRange.String(),
		Alpha:            a.Alpha * units.Angstrom,
		Kappa:            a.Kappa,
		Electrons:        a.Electrons.String(),
	}
}

func (s AssemblySpec) Assembly() (Assembly, error) {
	var a Assembly
	kinds := []struct {
		name string
		src  string
		dst  *Kind
	}{
		{"ion_ion", s.IonIon, &a.IonIon},
		{"electron_ion", s.ElectronIon, &a.ElectronIon},
		{"electron_electron", s.ElectronElectron, &a.ElectronElectron},
		{"long_range", s.LongRange, &a.LongRange},
	}
	for _, k := range kinds {
		v, err := ParseKind(k.src)
		if err != nil {
			return Assembly{}, fmt.Errorf("%s: %w", k.name, err)
		}
		*k.dst = v
	}
	mode, err := ParseElectronMode(s.Electrons)
	if err != nil {
		return Assembly{}, err
	}
	a.Electrons = mode
	a.Kappa = s.Kappa
	a.Alpha = s.Alpha / units.Angstrom
	if a.Alpha == 0 {
		a.Alpha = DefaultAlpha
	}
	if a.Alpha < 0 || a.Kappa < 0 {
		return Assembly{}, fmt.Errorf("potential: alpha and kappa must not be negative")
	}
	return a, nil
}
