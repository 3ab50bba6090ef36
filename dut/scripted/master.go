// Package scripted provides a Wishbone bus master that replays a fixed list
// of reads and writes. It stands in for a real core when exercising the
// emulator.
package scripted

import (
	"fmt"

	"github.com/sarchlab/wbsim/dut"
)

// A Result is the outcome of one read op.
type Result struct {
	Address  uint32
	Data     uint32
	Expected uint32
	Checked  bool
}

// Mismatch tells if a checked read returned something else.
func (r Result) Mismatch() bool {
	return r.Checked && r.Data != r.Expected
}

func (r Result) String() string {
	if r.Mismatch() {
		return fmt.Sprintf("RA=%08X DATA=%08X want %08X",
			r.Address, r.Data, r.Expected)
	}

	return fmt.Sprintf("RA=%08X DATA=%08X", r.Address, r.Data)
}

// A Master issues the ops of a script one at a time. It acts on rising edges
// of the 1x clock: it starts the next op, holds cyc and stb until it samples
// ack, and then moves on. It reports Finished once the last op completes.
type Master struct {
	dut.Signals

	ops  []Op
	next int

	prevClk1x bool
	busy      bool
	current   Op
	waitLeft  uint32

	edges     uint64
	results   []Result
	hold      bool
	finished  bool
	finalized bool
}

// NewMaster creates a master that runs ops in order.
func NewMaster(ops []Op) *Master {
	m := &Master{
		ops: make([]Op, len(ops)),
	}
	copy(m.ops, ops)

	return m
}

// Hold makes the master keep the bus idle once the script is exhausted
// instead of finishing. The run then ends only on the cycle limit.
func (m *Master) Hold() *Master {
	m.hold = true
	return m
}

// Evaluate implements dut.Device.
func (m *Master) Evaluate() {
	rising := m.Clk1x && !m.prevClk1x
	m.prevClk1x = m.Clk1x

	if !rising {
		return
	}

	m.edges++

	if m.Rst {
		m.reset()
		return
	}

	m.onRisingEdge()
}

func (m *Master) reset() {
	m.WbCyc = false
	m.WbStb = false
	m.WbWe = false
	m.WbSel = 0
	m.busy = false
	m.waitLeft = 0
	m.next = 0
	m.results = nil
	m.finished = false
}

func (m *Master) onRisingEdge() {
	if m.busy {
		if !m.WbAck {
			return
		}

		m.complete()
	}

	if m.waitLeft > 0 {
		m.waitLeft--
		return
	}

	m.issueNext()
}

func (m *Master) complete() {
	if m.current.Kind == OpRead {
		m.results = append(m.results, Result{
			Address:  m.current.Address,
			Data:     m.WbDatR,
			Expected: m.current.Data,
			Checked:  m.current.Check,
		})
	}

	m.busy = false
	m.WbCyc = false
	m.WbStb = false
	m.WbWe = false
	m.WbSel = 0
}

func (m *Master) issueNext() {
	for m.next < len(m.ops) {
		op := m.ops[m.next]
		m.next++

		if op.Kind == OpIdle {
			if op.Cycles == 0 {
				continue
			}

			m.waitLeft = op.Cycles - 1
			return
		}

		m.current = op
		m.busy = true
		m.WbCyc = true
		m.WbStb = true
		m.WbAdr = op.Address
		m.WbWe = op.Kind == OpWrite

		if m.WbWe {
			m.WbSel = op.Sel
			m.WbDatW = op.Data
		}

		return
	}

	m.finished = !m.hold
}

// Finalize implements dut.Device.
func (m *Master) Finalize() {
	m.finalized = true
}

// Finalized tells if Finalize has been called.
func (m *Master) Finalized() bool {
	return m.finalized
}

// Finished implements dut.Device.
func (m *Master) Finished() bool {
	return m.finished
}

// Results returns the outcome of every completed read, in order.
func (m *Master) Results() []Result {
	return m.results
}

// Mismatches returns the checked reads that returned unexpected data.
func (m *Master) Mismatches() []Result {
	var bad []Result

	for _, r := range m.results {
		if r.Mismatch() {
			bad = append(bad, r)
		}
	}

	return bad
}

// Edges returns the number of rising 1x clock edges seen.
func (m *Master) Edges() uint64 {
	return m.edges
}
