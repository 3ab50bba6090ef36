package timing

import (
	"errors"
	"fmt"
	"log"
)

// A Phase is the value of the two clock outputs during one fast tick. Bit 1
// carries the 1x clock and bit 0 the 2x clock.
type Phase uint8

// Clk1x returns the 1x (bus) clock value.
func (p Phase) Clk1x() bool {
	return p&0x2 != 0
}

// Clk2x returns the 2x clock value.
func (p Phase) Clk2x() bool {
	return p&0x1 != 0
}

// String prints the phase as the two clock bits, 1x first.
func (p Phase) String() string {
	return fmt.Sprintf("%d%d", p>>1&1, p&1)
}

// DefaultPhaseTable drives both clocks high, then the 2x clock low, then the
// 1x clock low with 2x high, then both low. One traversal is one bus cycle.
var DefaultPhaseTable = []Phase{0x3, 0x2, 0x1, 0x0}

// ValidatePhaseTable checks that the table is non-empty and that the 2x clock
// changes value exactly twice as often as the 1x clock over one traversal,
// counting the wrap from the last entry back to the first.
func ValidatePhaseTable(table []Phase) error {
	if len(table) == 0 {
		return errors.New("phase table is empty")
	}

	var toggles1x, toggles2x int
	for i, p := range table {
		prev := table[(i+len(table)-1)%len(table)]
		if p.Clk1x() != prev.Clk1x() {
			toggles1x++
		}

		if p.Clk2x() != prev.Clk2x() {
			toggles2x++
		}
	}

	if toggles1x == 0 {
		return errors.New("1x clock never toggles")
	}

	if toggles2x != 2*toggles1x {
		return fmt.Errorf(
			"2x clock toggles %d times per %d 1x toggles, want %d",
			toggles2x, toggles1x, 2*toggles1x)
	}

	return nil
}

// A ClockPhaseGenerator derives the 1x and 2x clocks from a single fast tick
// counter by walking a repeating phase table.
type ClockPhaseGenerator struct {
	table []Phase
	tick  uint64
}

// NewClockPhaseGenerator creates a generator over the given table, or over
// DefaultPhaseTable when none is given. An invalid table panics.
func NewClockPhaseGenerator(table ...Phase) *ClockPhaseGenerator {
	if len(table) == 0 {
		table = DefaultPhaseTable
	}

	if err := ValidatePhaseTable(table); err != nil {
		log.Panic(err)
	}

	g := &ClockPhaseGenerator{
		table: make([]Phase, len(table)),
	}
	copy(g.table, table)

	return g
}

// Advance returns the phase to drive for the current tick and moves the tick
// counter forward by one.
func (g *ClockPhaseGenerator) Advance() Phase {
	p := g.PhaseAt(g.tick)
	g.tick++

	return p
}

// PhaseAt returns the phase driven during the given tick. It depends only on
// tick mod table length.
func (g *ClockPhaseGenerator) PhaseAt(tick uint64) Phase {
	return g.table[tick%uint64(len(g.table))]
}

// Tick returns the number of ticks advanced so far.
func (g *ClockPhaseGenerator) Tick() uint64 {
	return g.tick
}

// AtBoundary tells if the last advance completed a full traversal of the
// phase table, which is a bus-cycle boundary.
func (g *ClockPhaseGenerator) AtBoundary() bool {
	return g.tick > 0 && g.tick%uint64(len(g.table)) == 0
}

// TicksPerCycle returns the number of fast ticks in one bus cycle.
func (g *ClockPhaseGenerator) TicksPerCycle() int {
	return len(g.table)
}
