// Package driver runs the tick loop that couples the clock generator, the
// device under test and the bus responder.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/sarchlab/wbsim/wishbone"
)

// A Driver runs one simulation. Every step runs on the caller's goroutine;
// only Status may be called from elsewhere.
type Driver struct {
	sim *SimulationContext

	imageLogger *log.Logger
	board       statusBoard

	started  bool
	finished bool
}

// Context returns the simulation context the driver owns.
func (d *Driver) Context() *SimulationContext {
	return d.sim
}

// Responder returns the bus responder.
func (d *Driver) Responder() *wishbone.Responder {
	return d.sim.Responder
}

// Status returns the state published at the last bus-cycle boundary. It is
// safe to call from any goroutine.
func (d *Driver) Status() Status {
	return d.board.read()
}

// Run loads memory, runs ticks until the device finishes or the cycle ceiling
// is passed, and then closes the trace and finalizes the device. The context
// is checked once per tick.
func (d *Driver) Run(ctx context.Context) (RunState, error) {
	if err := d.Start(); err != nil {
		if d.sim.State.Terminated {
			err = errors.Join(err, d.Finish())
		}

		return d.sim.State, err
	}

	for !d.sim.State.Terminated {
		if err := ctx.Err(); err != nil {
			d.sim.State.terminate(Cancelled)
			return d.sim.State, errors.Join(err, d.Finish())
		}

		if err := d.Step(); err != nil {
			return d.sim.State, errors.Join(err, d.Finish())
		}
	}

	return d.sim.State, d.Finish()
}

// Start prepares memory, opens the trace sink and asserts reset. If the sink
// cannot open, the run is terminated and only Finish remains to be called.
func (d *Driver) Start() error {
	if d.started {
		return errors.New("driver already started")
	}

	d.started = true
	d.loadMemory()

	if err := d.sim.Sink.Open(); err != nil {
		d.sim.State.terminate(TraceFailed)
		return fmt.Errorf("open trace: %w", err)
	}

	d.sim.setReset(true)
	d.sim.Heartbeat.Event(d.sim.State.Cycle, "Resetting...")
	d.releaseResetIfDue()
	d.board.publish(d.sim.status())

	return nil
}

func (d *Driver) loadMemory() {
	cfg := d.sim.Config

	d.sim.Storage.Apply(cfg.Preload)

	if cfg.ImagePath == "" {
		return
	}

	n, err := d.sim.Storage.LoadImageFile(cfg.ImagePath, cfg.ImageBase)
	if err != nil {
		d.imageLogger.Printf("memory image not loaded, memory reads default: %v", err)
		return
	}

	d.imageLogger.Printf("loaded %d words from %s at %08X",
		n, cfg.ImagePath, cfg.ImageBase)
}

// Step runs one fast tick: drive the clocks, evaluate the device, serve the
// bus on a cycle boundary, dump the trace and check for termination.
func (d *Driver) Step() error {
	if !d.started {
		return errors.New("driver not started")
	}

	if d.sim.State.Terminated {
		return errors.New("run already terminated")
	}

	s := d.sim

	s.setClocks(s.Clock.Advance())
	s.Device.Evaluate()

	if s.Clock.AtBoundary() {
		d.onBoundary()
	}

	if err := s.Sink.Dump(s.Clock.Tick(), s.Lines()); err != nil {
		s.State.terminate(TraceFailed)
		return fmt.Errorf("dump trace at tick %d: %w", s.Clock.Tick(), err)
	}

	switch {
	case s.Device.Finished():
		s.State.terminate(DeviceFinished)
	case s.State.Cycle > s.Config.RunCycles:
		s.State.terminate(CycleLimit)
	}

	return nil
}

func (d *Driver) onBoundary() {
	s := d.sim

	rsp := s.Responder.Step(s.State.Cycle, s.sampleBus())
	s.driveResponse(rsp)

	s.State.Cycle++
	d.releaseResetIfDue()

	status := s.status()
	if s.State.Cycle%s.Config.HeartbeatCycles == 0 {
		s.Heartbeat.Heartbeat(status)
	}

	d.board.publish(status)
}

func (d *Driver) releaseResetIfDue() {
	s := d.sim
	if s.State.ResetReleased || s.State.Cycle <= s.Config.ResetCycles {
		return
	}

	s.setReset(false)
	s.State.ResetReleased = true
	s.Heartbeat.Event(s.State.Cycle, "Releasing reset.")
}

// Finish closes the trace sink and finalizes the device. The device is
// finalized even if closing the trace fails. Calling Finish twice does
// nothing the second time.
func (d *Driver) Finish() error {
	if d.finished {
		return nil
	}

	d.finished = true
	s := d.sim

	err := s.Sink.Close()
	s.Device.Finalize()

	s.Heartbeat.Event(s.State.Cycle,
		fmt.Sprintf("Run ended: %s.", s.State.Reason))
	d.board.publish(s.status())

	if err != nil {
		return fmt.Errorf("close trace: %w", err)
	}

	return nil
}

func defaultLogger() *log.Logger {
	return log.New(os.Stdout, "", 0)
}
