package hnc

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/xrts/internal/field"
	"github.com/san-kum/xrts/internal/transform"
	"github.com/san-kum/xrts/internal/units"
)

func configWith(mixing float64, maxIter int) Config {
	cfg := DefaultConfig()
	cfg.Mixing = mixing
	cfg.MaxIterations = maxIter
	return cfg
}

func expectPhysicalG(g *field.Field) {
	Expect(g.IsFinite()).To(BeTrue())
	Expect(g.IsSymmetric(1e-12)).To(BeTrue())
	for _, v := range g.Data {
		Expect(v).To(BeNumerically(">=", 0))
	}
}

var _ = Describe("Solve", func() {
	Describe("input validation", func() {
		var sys system

		BeforeEach(func() {
			sys = hydrogenOCP(1, 40, 256)
		})

		It("rejects a density vector that disagrees with the potential", func() {
			calls := 0
			s := quietSolver()
			s.AddObserver(ObserverFunc(func(int, float64) error { calls++; return nil }))

			in := sys.in
			in.Density = []float64{in.Density[0], in.Density[0]}
			in.Temperature = [][]float64{{1, 1}, {1, 1}}

			res, err := s.Solve(context.Background(), in, DefaultConfig())
			Expect(res).To(BeNil())
			Expect(errors.Is(err, ErrShapeMismatch)).To(BeTrue())

			var se *SolveError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Iteration).To(Equal(0))
			Expect(se.Species).To(Equal(2))
			Expect(se.GridSize).To(Equal(256))
			Expect(calls).To(Equal(0))
		})

		It("rejects fields on a different grid length", func() {
			in := sys.in
			in.LongK = field.New(1, 128)
			_, err := quietSolver().Solve(context.Background(), in, DefaultConfig())
			Expect(errors.Is(err, ErrShapeMismatch)).To(BeTrue())
		})

		It("requires both long-range parts or neither", func() {
			in := sys.in
			in.LongK = nil
			_, err := quietSolver().Solve(context.Background(), in, DefaultConfig())
			Expect(errors.Is(err, ErrShapeMismatch)).To(BeTrue())
		})

		It("rejects a mismatched initial guess", func() {
			cfg := DefaultConfig()
			cfg.InitialGuess = field.New(1, 255)
			_, err := quietSolver().Solve(context.Background(), sys.in, cfg)
			Expect(errors.Is(err, ErrShapeMismatch)).To(BeTrue())
		})

		It("rejects non-physical temperatures", func() {
			in := sys.in
			in.Temperature = [][]float64{{-1}}
			_, err := quietSolver().Solve(context.Background(), in, DefaultConfig())
			Expect(errors.Is(err, ErrInvalidInput)).To(BeTrue())
		})

		DescribeTable("rejects invalid configurations",
			func(mutate func(*Config)) {
				cfg := DefaultConfig()
				mutate(&cfg)
				_, err := quietSolver().Solve(context.Background(), sys.in, cfg)
				Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
			},
			Entry("zero mixing", func(c *Config) { c.Mixing = 0 }),
			Entry("mixing above one", func(c *Config) { c.Mixing = 1.5 }),
			Entry("no iterations", func(c *Config) { c.MaxIterations = 0 }),
			Entry("zero tolerance", func(c *Config) { c.Tolerance = 0 }),
			Entry("negative regularization", func(c *Config) { c.Regularization = -1 }),
		)
	})

	Describe("one-component plasma", func() {
		DescribeTable("converges at moderate coupling",
			func(gamma, mixing float64) {
				sys := hydrogenOCP(gamma, 40, 2048)
				res, err := quietSolver().Solve(context.Background(), sys.in, configWith(mixing, 500))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Converged).To(BeTrue(), "residual %g after %d iterations", res.Residual, res.Iterations)
				Expect(res.Err()).NotTo(HaveOccurred())
				Expect(res.Residual).To(BeNumerically("<", 1e-6))
				Expect(res.History).To(HaveLen(res.Iterations))
				Expect(res.Saturated).To(BeZero())

				expectPhysicalG(res.G)
				last := sys.in.Grid.Len() - 1
				Expect(res.G.At(0, 0, last)).To(BeNumerically("~", 1, 1e-2))

				tr, err := transform.New(sys.in.Grid)
				Expect(err).NotTo(HaveOccurred())
				s, err := StructureFactors(res.G, sys.in.Density, tr)
				Expect(err).NotTo(HaveOccurred())
				Expect(s.At(0, 0, last)).To(BeNumerically("~", 1, 1e-2))
				// perfect screening of the background
				Expect(LongWavelengthLimit(s)[0][0]).To(BeNumerically("<", 0.1))
			},
			Entry("Γ = 1", 1.0, 0.5),
			Entry("Γ = 3", 3.0, 0.4),
			Entry("Γ = 10, heavy damping", 10.0, 0.1),
			Entry("Γ = 10", 10.0, 0.3),
			Entry("Γ = 10, light damping", 10.0, 0.5),
		)

		It("keeps the iterate bounded inside the correlation hole at Γ = 10", func() {
			sys := hydrogenOCP(10, 40, 2048)
			for _, n := range []int{5, 20, 60} {
				res, err := quietSolver().Solve(context.Background(), sys.in, configWith(0.5, n))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Saturated).To(BeZero())
				for i, r := range sys.in.Grid.R {
					if r < 0.6*sys.a {
						Expect(res.G.At(0, 0, i)).To(BeNumerically("<", 0.05), "iteration %d, r/a = %.3f", n, r/sys.a)
					}
				}
			}
		})

		It("reduces to Debye-Hückel at weak coupling", func() {
			sys := hydrogenOCP(0.01, 250, 4096)
			res, err := quietSolver().Solve(context.Background(), sys.in, configWith(0.5, 1000))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())

			tr, err := transform.New(sys.in.Grid)
			Expect(err).NotTo(HaveOccurred())
			s, err := StructureFactors(res.G, sys.in.Density, tr)
			Expect(err).NotTo(HaveOccurred())

			checked := 0
			for i, k := range sys.in.Grid.K {
				if k < 0.5*sys.kD || k > 5*sys.kD {
					continue
				}
				want := k * k / (k*k + sys.kD*sys.kD)
				Expect(s.At(0, 0, i)).To(BeNumerically("~", want, 0.05*want), "k/kD = %.3f", k/sys.kD)
				checked++
			}
			Expect(checked).To(BeNumerically(">", 10))
		})

		It("shows a correlation hole and a first peak at Γ = 30", func() {
			sys := hydrogenOCP(30, 1, 4096)
			// grid out to ten Bohr radii
			sys = buildSystem(sys.state, 10*units.BohrRadius, 4096)

			res, err := quietSolver().Solve(context.Background(), sys.in, configWith(0.2, 3000))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue(), "residual %g after %d iterations", res.Residual, res.Iterations)
			expectPhysicalG(res.G)

			peak := 0.0
			for i, r := range sys.in.Grid.R {
				g := res.G.At(0, 0, i)
				if r < 0.8*sys.a {
					Expect(g).To(BeNumerically("<", 0.1), "r/a = %.3f", r/sys.a)
				}
				peak = math.Max(peak, g)
			}
			Expect(peak).To(BeNumerically(">", 1.2))
			Expect(res.G.At(0, 0, sys.in.Grid.Len()-1)).To(BeNumerically("~", 1, 1e-3))
		})

		It("saturates instead of overflowing for huge potentials", func() {
			sys := hydrogenOCP(1, 40, 256)
			in := sys.in
			in.PotentialR = in.PotentialR.Scale(1e6)
			in.LongR = nil
			in.LongK = nil

			res, err := quietSolver().Solve(context.Background(), in, configWith(0.5, 3))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.G.IsFinite()).To(BeTrue())
			Expect(res.G.At(0, 0, 0)).To(BeNumerically(">=", 0))
			Expect(res.G.At(0, 0, 0)).To(BeNumerically("<", 1e-300))
		})
	})

	Describe("closure ceiling", func() {
		It("holds the exponent to its bounds", func() {
			g, top := closure(0, 1)
			Expect(g).To(BeNumerically("~", math.E, 1e-12))
			Expect(top).To(BeFalse())

			g, top = closure(-1e4, 0)
			Expect(g).To(Equal(math.Exp(MaxExponent)))
			Expect(top).To(BeTrue())

			g, top = closure(1e4, 0)
			Expect(g).To(Equal(math.Exp(MinExponent)))
			Expect(top).To(BeFalse())
		})

		It("never reports a solve with g at its ceiling as converged", func() {
			// without density the iterate is fixed at g = exp(-βV), so a
			// deep attractive well pins g to the ceiling with zero residual
			sys := hydrogenOCP(1, 40, 256)
			in := sys.in
			in.Density = []float64{0}
			in.PotentialR = in.PotentialR.Scale(-1e3)
			in.LongR = nil
			in.LongK = nil

			res, err := quietSolver().Solve(context.Background(), in, configWith(0.5, 20))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Residual).To(BeNumerically("<", DefaultConfig().Tolerance))
			Expect(res.Converged).To(BeFalse())
			Expect(res.Iterations).To(Equal(20))
			Expect(res.Saturated).To(BeNumerically(">", 0))
			Expect(errors.Is(res.Err(), ErrNonConvergence)).To(BeTrue())
			Expect(res.Err().Error()).To(ContainSubstring("ceiling"))
			for _, v := range res.G.Data {
				Expect(v).To(BeNumerically("<=", math.Exp(MaxExponent)))
			}
		})

		It("converges without density to the bare Boltzmann factor", func() {
			sys := hydrogenOCP(1, 40, 256)
			in := sys.in
			in.Density = []float64{0}
			in.LongR = nil
			in.LongK = nil

			res, err := quietSolver().Solve(context.Background(), in, configWith(0.5, 20))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())
			Expect(res.Iterations).To(Equal(1))
			Expect(res.Saturated).To(BeZero())
			for i := range sys.in.Grid.R {
				want := math.Exp(-in.PotentialR.At(0, 0, i) / (units.Boltzmann * in.Temperature[0][0]))
				Expect(res.G.At(0, 0, i)).To(BeNumerically("~", want, 1e-9))
			}
		})
	})

	Describe("binary ionic mixture", func() {
		It("produces symmetric g and S that decorrelate at large k", func() {
			sys := hydrogenHelium(1, 40, 2048)
			res, err := quietSolver().Solve(context.Background(), sys.in, configWith(0.3, 1500))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue(), "residual %g after %d iterations", res.Residual, res.Iterations)
			expectPhysicalG(res.G)

			tr, err := transform.New(sys.in.Grid)
			Expect(err).NotTo(HaveOccurred())
			s, err := StructureFactors(res.G, sys.in.Density, tr)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.IsSymmetric(1e-12)).To(BeTrue())

			last := sys.in.Grid.Len() - 1
			Expect(s.At(0, 0, last)).To(BeNumerically("~", 1, 1e-2))
			Expect(s.At(1, 1, last)).To(BeNumerically("~", 1, 1e-2))
			Expect(s.At(0, 1, last)).To(BeNumerically("~", 0, 1e-2))

			// like charges repel more strongly between the alpha particles
			Expect(res.G.At(1, 1, 20)).To(BeNumerically("<", res.G.At(0, 0, 20)))
		})
	})

	Describe("iteration control", func() {
		var sys system

		BeforeEach(func() {
			sys = hydrogenOCP(3, 40, 1024)
		})

		It("reports an exhausted budget as a soft failure", func() {
			res, err := quietSolver().Solve(context.Background(), sys.in, configWith(0.4, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeFalse())
			Expect(res.Iterations).To(Equal(2))
			Expect(res.G).NotTo(BeNil())
			Expect(errors.Is(res.Err(), ErrNonConvergence)).To(BeTrue())
		})

		It("warm-starts from a converged solution", func() {
			cfg := configWith(0.4, 1000)
			cold, err := quietSolver().Solve(context.Background(), sys.in, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(cold.Converged).To(BeTrue())

			cfg.InitialGuess = cold.G
			warm, err := quietSolver().Solve(context.Background(), sys.in, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(warm.Converged).To(BeTrue())
			Expect(warm.Iterations).To(BeNumerically("<", cold.Iterations/2))

			d, err := field.MaxAbsDiff(cold.G, warm.G)
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(BeNumerically("<", 1e-4))
		})

		It("notifies observers once per iteration", func() {
			h := &History{}
			s := quietSolver()
			s.AddObserver(h)
			res, err := s.Solve(context.Background(), sys.in, configWith(0.4, 1000))
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Residuals).To(Equal(res.History))
		})

		It("aborts when an observer fails", func() {
			stop := errors.New("stop")
			s := quietSolver()
			s.AddObserver(ObserverFunc(func(it int, _ float64) error {
				if it == 3 {
					return stop
				}
				return nil
			}))
			res, err := s.Solve(context.Background(), sys.in, configWith(0.4, 1000))
			Expect(errors.Is(err, stop)).To(BeTrue())
			var se *SolveError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Iteration).To(Equal(3))
			Expect(res.Iterations).To(Equal(3))
			Expect(res.G).NotTo(BeNil())
		})

		It("stops on a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := quietSolver().Solve(ctx, sys.in, DefaultConfig())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(res.Iterations).To(Equal(0))
		})
	})
})

var _ = Describe("DivergenceGuard", func() {
	It("trips after Patience consecutive increases", func() {
		d := NewDivergenceGuard(3)
		residuals := []float64{1, 0.5, 0.6, 0.4, 0.5, 0.6, 0.7}
		var err error
		tripped := 0
		for i, r := range residuals {
			if err = d.OnIteration(i+1, r); err != nil {
				tripped = i + 1
				break
			}
		}
		Expect(errors.Is(err, ErrDiverged)).To(BeTrue())
		Expect(tripped).To(Equal(7))
	})

	It("is disabled with zero patience", func() {
		d := NewDivergenceGuard(0)
		for i := 1; i < 50; i++ {
			Expect(d.OnIteration(i, float64(i))).To(Succeed())
		}
	})
})

var _ = Describe("OZ inversion", func() {
	setup := func(reg float64, a [][]float64) (*ozSolver, *mat.Dense) {
		o := newOZSolver(2, reg)
		for i := range a {
			for j := range a[i] {
				o.a.Set(i, j, a[i][j])
			}
		}
		o.c.Set(0, 0, 1)
		o.c.Set(1, 1, 1)
		return &o, o.h
	}

	It("fails on a singular matrix without regularization", func() {
		o, _ := setup(0, [][]float64{{0, 0}, {0, 1}})
		Expect(errors.Is(o.invert(), ErrSingularMatrix)).To(BeTrue())
	})

	It("recovers through the regularized retry", func() {
		o, h := setup(1e-3, [][]float64{{0, 0}, {0, 1}})
		Expect(o.invert()).To(Succeed())
		Expect(h.At(0, 0)).To(BeNumerically("~", 1e3, 1e-6))
		Expect(h.At(1, 1)).To(BeNumerically("~", 1/(1+1e-3), 1e-12))
	})
})
