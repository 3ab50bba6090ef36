package driver

import (
	"github.com/sarchlab/wbsim/dut"
	"github.com/sarchlab/wbsim/mem"
	"github.com/sarchlab/wbsim/sim/timing"
	"github.com/sarchlab/wbsim/tracing"
	"github.com/sarchlab/wbsim/wishbone"
)

// A SimulationContext owns everything one run touches. Nothing in it is
// shared with other runs.
type SimulationContext struct {
	Config    Config
	Storage   *mem.Storage
	Responder *wishbone.Responder
	Clock     *timing.ClockPhaseGenerator
	State     RunState
	Device    dut.Device
	Sink      tracing.Sink
	Heartbeat HeartbeatSink

	// driven mirrors the inputs the driver has put on the device.
	driven dut.Signals
}

// Lines returns every device line as seen after the last evaluation.
func (c *SimulationContext) Lines() dut.Signals {
	return dut.Snapshot(c.Device, c.driven)
}

func (c *SimulationContext) setReset(on bool) {
	c.driven.Rst = on
	c.State.ResetAsserted = on
	c.Device.SetReset(on)
}

func (c *SimulationContext) setClocks(p timing.Phase) {
	c.driven.Clk1x = p.Clk1x()
	c.driven.Clk2x = p.Clk2x()
	c.Device.SetClk1x(c.driven.Clk1x)
	c.Device.SetClk2x(c.driven.Clk2x)
}

func (c *SimulationContext) sampleBus() wishbone.Request {
	d := c.Device

	return wishbone.Request{
		Cyc:  d.Cyc(),
		Stb:  d.Stb(),
		We:   d.We(),
		Sel:  d.Sel(),
		Adr:  d.Adr(),
		DatW: d.DatW(),
	}
}

func (c *SimulationContext) driveResponse(rsp wishbone.Response) {
	c.driven.WbAck = rsp.Ack
	c.driven.WbDatR = rsp.DatR
	c.Device.SetAck(rsp.Ack)
	c.Device.SetDatR(rsp.DatR)
}

func (c *SimulationContext) status() Status {
	s := Status{
		Cycle:          c.State.Cycle,
		Tick:           c.Clock.Tick(),
		RunCycles:      c.Config.RunCycles,
		ThreadRunCycle: c.Config.ThreadRunCycle,
		ResetAsserted:  c.State.ResetAsserted,
		Terminated:     c.State.Terminated,
		Reason:         c.State.Reason.String(),
		ResponderState: c.Responder.State().String(),
		Reads:          c.Responder.Reads(),
		Writes:         c.Responder.Writes(),
		MappedWords:    c.Storage.Len(),
	}

	if p := c.Responder.Pending(); p != nil {
		pending := *p
		s.Pending = &pending
	}

	return s
}
