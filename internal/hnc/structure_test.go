package hnc

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/xrts/internal/field"
	"github.com/san-kum/xrts/internal/grid"
	"github.com/san-kum/xrts/internal/transform"
)

var _ = Describe("StructureFactors", func() {
	var (
		g  grid.Grid
		tr *transform.Transformer
	)

	BeforeEach(func() {
		var err error
		g, err = grid.New(30, 512)
		Expect(err).NotTo(HaveOccurred())
		tr, err = transform.New(g)
		Expect(err).NotTo(HaveOccurred())
	})

	It("is the identity for an uncorrelated system", func() {
		ideal := field.FromFunc(2, g.Len(), func(int, int, int) float64 { return 1 })
		s, err := StructureFactors(ideal, []float64{0.3, 0.1}, tr)
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < g.Len(); i++ {
			Expect(s.At(0, 0, i)).To(Equal(1.0))
			Expect(s.At(1, 1, i)).To(Equal(1.0))
			Expect(s.At(0, 1, i)).To(Equal(0.0))
		}
	})

	It("weights the Gaussian hole by the pair densities", func() {
		density := []float64{0.2, 0.05}
		gr := field.FromFunc(2, g.Len(), func(_, _ int, i int) float64 {
			r := g.R[i]
			return 1 - math.Exp(-r*r)
		})
		s, err := StructureFactors(gr, density, tr)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.IsSymmetric(0)).To(BeTrue())

		hole := -math.Pow(math.Pi, 1.5) // F[-exp(-r²)] at k → 0
		k0 := g.K[0]
		want := hole * math.Exp(-k0*k0/4)
		Expect(s.At(0, 0, 0)).To(BeNumerically("~", 1+density[0]*want, 1e-8))
		Expect(s.At(0, 1, 0)).To(BeNumerically("~", math.Sqrt(density[0]*density[1])*want, 1e-8))
	})

	It("rejects a density vector of the wrong length", func() {
		_, err := StructureFactors(field.New(2, g.Len()), []float64{1}, tr)
		Expect(errors.Is(err, ErrShapeMismatch)).To(BeTrue())
	})
})

var _ = Describe("Interpolate", func() {
	It("interpolates linearly and clamps outside the grid", func() {
		g, err := grid.New(10, 16)
		Expect(err).NotTo(HaveOccurred())
		s := field.FromFunc(1, g.Len(), func(_, _ int, i int) float64 { return float64(i) })

		at, err := Interpolate(s, g, g.K[3])
		Expect(err).NotTo(HaveOccurred())
		Expect(at[0][0]).To(BeNumerically("~", 3, 1e-12))

		mid, err := Interpolate(s, g, 0.5*(g.K[3]+g.K[4]))
		Expect(err).NotTo(HaveOccurred())
		Expect(mid[0][0]).To(BeNumerically("~", 3.5, 1e-12))

		below, err := Interpolate(s, g, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(below[0][0]).To(Equal(0.0))

		above, err := Interpolate(s, g, 1e9)
		Expect(err).NotTo(HaveOccurred())
		Expect(above[0][0]).To(Equal(15.0))
	})

	It("rejects a field from another grid", func() {
		g, err := grid.New(10, 16)
		Expect(err).NotTo(HaveOccurred())
		_, err = Interpolate(field.New(1, 8), g, 1)
		Expect(errors.Is(err, ErrShapeMismatch)).To(BeTrue())
	})
})
