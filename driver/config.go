package driver

import (
	"errors"

	"github.com/sarchlab/wbsim/mem"
	"github.com/sarchlab/wbsim/sim/timing"
)

// Config holds the run parameters.
type Config struct {
	// ResetCycles is the last bus cycle with reset asserted.
	ResetCycles uint64

	// ThreadRunCycle is the cycle at which core threads would be started. It
	// is carried for reporting only and does not change the run.
	ThreadRunCycle uint64

	// RunCycles is the cycle ceiling. The run stops at the first cycle
	// strictly greater than it.
	RunCycles uint64

	// HeartbeatCycles is the interval between heartbeats.
	HeartbeatCycles uint64

	// ImagePath is the memory image loaded before the run. Empty skips it.
	ImagePath string

	// ImageBase is the address of the first image word.
	ImageBase uint32

	// Preload lists words written before the image is loaded.
	Preload []mem.Preload

	DefaultValue uint32
	LittleEndian bool
	LogStores    bool

	// Freq is the bus clock frequency, used only for timestamps.
	Freq timing.Freq
}

// DefaultConfig returns the parameters of the stock test bench.
func DefaultConfig() Config {
	return Config{
		ResetCycles:     10,
		ThreadRunCycle:  15,
		RunCycles:       500,
		HeartbeatCycles: 500,
		ImagePath:       "../mem/test1/rom.init",
		ImageBase:       0,
		Preload: []mem.Preload{
			{Address: 0xFFFFFFFC, Value: 0x48000002},
		},
		LogStores: true,
		Freq:      100 * timing.MHz,
	}
}

// Validate reports parameters that cannot make a run.
func (c Config) Validate() error {
	if c.RunCycles == 0 {
		return errors.New("run cycles must be positive")
	}

	if c.HeartbeatCycles == 0 {
		return errors.New("heartbeat cycles must be positive")
	}

	if c.Freq <= 0 {
		return errors.New("frequency must be positive")
	}

	return nil
}
