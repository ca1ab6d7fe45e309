package potential

import (
	"math"
)

// pair carries everything a form needs for one species pair (a, b).
type pair struct {
	q      float64 // Z_a Z_b e² / (4πε0), J·m
	kT     float64 // k_B T_ab, J
	lambda float64 // thermal wavelength of the reduced mass at T_ab, m
	kappa  float64 // screening wavenumber, m^-1
}

// variant is one row of the dispatch table. longR and longK describe the
// smooth tail split off with parameter alpha; shortR is always full-longR.
type variant struct {
	full  func(r float64, p pair) float64
	longR func(r float64, p pair, alpha float64) float64
	longK func(k float64, p pair, alpha float64) float64
}

var variants = map[Kind]variant{
	Empty: {
		full:  func(float64, pair) float64 { return 0 },
		longR: func(float64, pair, float64) float64 { return 0 },
		longK: func(float64, pair, float64) float64 { return 0 },
	},
	Coulomb: {
		full:  coulomb,
		longR: coulombTailR,
		longK: coulombTailK,
	},
	DebyeHuckel: {
		full: func(r float64, p pair) float64 {
			return p.q * math.Exp(-p.kappa*r) / r
		},
		longR: func(r float64, p pair, alpha float64) float64 {
			return p.q * math.Exp(-p.kappa*r) * -math.Expm1(-alpha*r) / r
		},
		longK: func(k float64, p pair, alpha float64) float64 {
			k2 := k * k
			ka := p.kappa + alpha
			return 4 * math.Pi * p.q * (1/(k2+p.kappa*p.kappa) - 1/(k2+ka*ka))
		},
	},
	Kelbg: {
		full:  kelbg,
		longR: coulombTailR,
		longK: coulombTailK,
	},
	Deutsch: {
		full: func(r float64, p pair) float64 {
			return p.q / r * -math.Expm1(-r/p.lambda)
		},
		longR: coulombTailR,
		longK: coulombTailK,
	},
	KlimontovichKraeft: {
		full:  klimontovichKraeft,
		longR: coulombTailR,
		longK: coulombTailK,
	},
}

func lookup(k Kind) (variant, bool) {
	v, ok := variants[k]
	return v, ok
}

func coulomb(r float64, p pair) float64 { return p.q / r }

// coulombTailR is V_C(r)(1 - e^{-αr}); it tends to q·α at r = 0.
func coulombTailR(r float64, p pair, alpha float64) float64 {
	return p.q * -math.Expm1(-alpha*r) / r
}

func coulombTailK(k float64, p pair, alpha float64) float64 {
	k2 := k * k
	return 4 * math.Pi * p.q * alpha * alpha / (k2 * (k2 + alpha*alpha))
}

func kelbg(r float64, p pair) float64 {
	x := r / p.lambda
	return p.q / r * (-math.Expm1(-x*x) + math.Sqrt(math.Pi)*x*math.Erfc(x))
}

// klimontovichKraeft is finite at r = 0 where it equals sign(q)·k_BTξ²/16,
// and approaches q/r for large r.
func klimontovichKraeft(r float64, p pair) float64 {
	if p.q == 0 {
		return 0
	}
	aq := math.Abs(p.q)
	xi := aq / (p.lambda * p.kT)
	v0 := p.kT * xi * xi / 16
	return math.Copysign(v0/(1+v0*r/aq), p.q)
}

// pauli is the spin-averaged exchange term for the electron-electron pair.
func pauli(r float64, p pair) float64 {
	return p.kT * math.Ln2 * math.Exp(-r*r/(math.Pi*p.lambda*p.lambda))
}
