package timing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ClockPhaseGenerator", func() {
	var g *ClockPhaseGenerator

	BeforeEach(func() {
		g = NewClockPhaseGenerator()
	})

	It("should walk the default table", func() {
		phases := []Phase{}
		for i := 0; i < 8; i++ {
			phases = append(phases, g.Advance())
		}

		Expect(phases).To(Equal([]Phase{
			0x3, 0x2, 0x1, 0x0,
			0x3, 0x2, 0x1, 0x0,
		}))
		Expect(g.Tick()).To(Equal(uint64(8)))
	})

	It("should decode the clock bits", func() {
		Expect(Phase(0x2).Clk1x()).To(BeTrue())
		Expect(Phase(0x2).Clk2x()).To(BeFalse())
		Expect(Phase(0x1).Clk1x()).To(BeFalse())
		Expect(Phase(0x1).Clk2x()).To(BeTrue())
		Expect(Phase(0x1).String()).To(Equal("01"))
	})

	It("should report a boundary once per traversal", func() {
		boundaries := 0
		for i := 0; i < 40; i++ {
			g.Advance()
			if g.AtBoundary() {
				boundaries++
				Expect(g.Tick() % 4).To(BeZero())
			}
		}

		Expect(boundaries).To(Equal(10))
	})

	It("should not report a boundary before the first tick", func() {
		Expect(g.AtBoundary()).To(BeFalse())
	})

	It("should toggle the 2x clock twice per 1x toggle", func() {
		prev := g.Advance()
		toggles1x, toggles2x := 0, 0

		for i := 0; i < 400; i++ {
			p := g.Advance()
			if p.Clk1x() != prev.Clk1x() {
				toggles1x++
				Expect(toggles2x).To(Equal(2*toggles1x - 1))
			}

			if p.Clk2x() != prev.Clk2x() {
				toggles2x++
			}

			prev = p
		}

		Expect(toggles2x).To(Equal(2 * toggles1x))
	})

	It("should derive phases purely from the index", func() {
		Expect(g.PhaseAt(5)).To(Equal(g.PhaseAt(1)))
		Expect(g.PhaseAt(1003)).To(Equal(Phase(0x0)))
	})

	It("should accept a custom table", func() {
		g = NewClockPhaseGenerator(0x3, 0x3, 0x2, 0x2, 0x1, 0x1, 0x0, 0x0)

		Expect(g.TicksPerCycle()).To(Equal(8))
	})

	It("should reject an empty or inconsistent table", func() {
		Expect(ValidatePhaseTable(nil)).To(HaveOccurred())
		Expect(ValidatePhaseTable([]Phase{0x3, 0x0})).To(HaveOccurred())
		Expect(func() { NewClockPhaseGenerator(0x1, 0x0) }).To(Panic())
	})
})
