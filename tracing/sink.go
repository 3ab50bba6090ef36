package tracing

import "github.com/sarchlab/wbsim/dut"

// A Sink receives the signal lines once per tick.
type Sink interface {
	// Open prepares the sink before the first tick.
	Open() error

	// Dump records the lines at the given tick.
	Dump(tick uint64, lines dut.Signals) error

	// Close finishes the sink after the last tick.
	Close() error
}

// NopSink discards everything.
type NopSink struct{}

// Open does nothing.
func (NopSink) Open() error { return nil }

// Dump does nothing.
func (NopSink) Dump(uint64, dut.Signals) error { return nil }

// Close does nothing.
func (NopSink) Close() error { return nil }
