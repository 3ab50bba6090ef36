// Package dut defines how the bus emulator sees the hardware core under test.
//
// The emulator only reaches the top-level signal lines of the core. Whatever
// lies below them (internal nets, generated hierarchy) is off limits.
package dut

// A Device is a core under test driven by the emulator. Setters take effect
// at the next Evaluate. Getters return the values produced by the last
// Evaluate.
type Device interface {
	// SetReset drives the active-high reset input.
	SetReset(on bool)

	// SetClk1x drives the bus clock.
	SetClk1x(v bool)

	// SetClk2x drives the double-rate clock.
	SetClk2x(v bool)

	Cyc() bool
	Stb() bool
	We() bool
	Sel() uint8
	Adr() uint32
	DatW() uint32

	// SetDatR drives the read data returned by the memory slave.
	SetDatR(v uint32)

	// SetAck drives the acknowledge returned by the memory slave.
	SetAck(on bool)

	// Evaluate settles the core logic for the current inputs. It is one
	// delta-cycle.
	Evaluate()

	// Finalize runs the end-of-simulation hook of the core.
	Finalize()

	// Finished tells if the core has asked to end the simulation.
	Finished() bool
}

// Signals stores every line of the Device interface. Models embed it and add
// Evaluate, Finalize and Finished.
type Signals struct {
	Rst   bool
	Clk1x bool
	Clk2x bool

	WbCyc  bool
	WbStb  bool
	WbWe   bool
	WbSel  uint8
	WbAdr  uint32
	WbDatW uint32

	WbDatR uint32
	WbAck  bool
}

// SetReset drives the reset line.
func (s *Signals) SetReset(on bool) { s.Rst = on }

// SetClk1x drives the bus clock.
func (s *Signals) SetClk1x(v bool) { s.Clk1x = v }

// SetClk2x drives the double-rate clock.
func (s *Signals) SetClk2x(v bool) { s.Clk2x = v }

// Cyc returns the cycle-valid line.
func (s *Signals) Cyc() bool { return s.WbCyc }

// Stb returns the strobe line.
func (s *Signals) Stb() bool { return s.WbStb }

// We returns the write-enable line.
func (s *Signals) We() bool { return s.WbWe }

// Sel returns the byte-enable lines.
func (s *Signals) Sel() uint8 { return s.WbSel }

// Adr returns the address lines.
func (s *Signals) Adr() uint32 { return s.WbAdr }

// DatW returns the write data lines.
func (s *Signals) DatW() uint32 { return s.WbDatW }

// SetDatR drives the read data lines.
func (s *Signals) SetDatR(v uint32) { s.WbDatR = v }

// SetAck drives the acknowledge line.
func (s *Signals) SetAck(on bool) { s.WbAck = on }

// Snapshot copies the lines of any Device into a Signals value. Inputs that
// the Device interface cannot read back are taken from driven.
func Snapshot(d Device, driven Signals) Signals {
	s := driven
	s.WbCyc = d.Cyc()
	s.WbStb = d.Stb()
	s.WbWe = d.We()
	s.WbSel = d.Sel()
	s.WbAdr = d.Adr()
	s.WbDatW = d.DatW()

	return s
}
