package timing

import (
	"log"
	"math"
)

// VTimeInSec defines the time in the simulated space in the unit of second.
type VTimeInSec = float64

// Freq defines the type of frequency.
type Freq float64

// Defines the unit of frequency.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks.
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(time VTimeInSec) uint64 {
	return uint64(math.Round(float64(time) * float64(f)))
}

// NCycles returns the time after n cycles from time 0.
func (f Freq) NCycles(n uint64) VTimeInSec {
	return VTimeInSec(float64(n) / float64(f))
}

// TickTime converts a fast-tick count into virtual time, given that the bus
// clock f spans ticksPerCycle fast ticks.
//
//	bus cycle    |<------------ 1/f ------------>|
//	fast ticks   |-------|-------|-------|-------|
//	             0       1       2       3       4
func (f Freq) TickTime(tick uint64, ticksPerCycle int) VTimeInSec {
	if ticksPerCycle <= 0 {
		log.Panic("ticks per cycle must be positive")
	}

	return VTimeInSec(float64(tick) / (float64(f) * float64(ticksPerCycle)))
}
