package potential

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownKind = errors.New("potential: unknown kind")

// Kind selects one of the closed set of pair potential forms.
type Kind int

const (
	Empty Kind = iota
	Coulomb
	DebyeHuckel
	Kelbg
	Deutsch
	KlimontovichKraeft
)

// ElectronMode controls whether and how the averaged electron species
// takes part in a solve.
type ElectronMode int

const (
	// Off drops the electrons from the species set.
	Off ElectronMode = iota
	// SpinAveraged adds the spin-averaged Pauli exchange term to the
	// electron-electron short-range part.
	SpinAveraged
	// SpinSeparated keeps the electrons without an exchange term.
	SpinSeparated
)

var kindNames = map[Kind]string{
	Empty:              "empty",
	Coulomb:            "coulomb",
	DebyeHuckel:        "debye_huckel",
	Kelbg:              "kelbg",
	Deutsch:            "deutsch",
	KlimontovichKraeft: "klimontovich_kraeft",
}

var modeNames = map[ElectronMode]string{
	Off:           "off",
	SpinAveraged:  "spin_averaged",
	SpinSeparated: "spin_separated",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (m ElectronMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("ElectronMode(%d)", int(m))
}

// normalize folds "DebyeHuckel", "debye-huckel" and "debye_huckel" together.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// ParseKind accepts the names printed by Kind.String in any case and with
// or without separators. The empty string parses as Empty.
func ParseKind(s string) (Kind, error) {
	if strings.TrimSpace(s) == "" {
		return Empty, nil
	}
	want := normalize(s)
	for k, name := range kindNames {
		if normalize(name) == want {
			return k, nil
		}
	}
	return Empty, fmt.Errorf("%w: %q (known: %s)", ErrUnknownKind, s, strings.Join(KindNames(), ", "))
}

func ParseElectronMode(s string) (ElectronMode, error) {
	if strings.TrimSpace(s) == "" {
		return Off, nil
	}
	want := normalize(s)
	for m, name := range modeNames {
		if normalize(name) == want {
			return m, nil
		}
	}
	return Off, fmt.Errorf("potential: unknown electron mode %q", s)
}

// KindNames lists every registered potential kind, sorted.
func KindNames() []string {
	names := make([]string, 0, len(kindNames))
	for _, n := range kindNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
