package tracing

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sarchlab/wbsim/dut"
	"github.com/sarchlab/wbsim/sim/timing"
)

// vcdResolution is the rate of the picosecond timescale used once the writer
// knows the bus clock.
const vcdResolution = 1000 * timing.GHz

type vcdVar struct {
	id    string
	name  string
	width int
	value func(s *dut.Signals) uint64
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}

	return 0
}

var vcdVars = []vcdVar{
	{"!", "rst", 1, func(s *dut.Signals) uint64 { return boolBit(s.Rst) }},
	{"\"", "clk_1x", 1, func(s *dut.Signals) uint64 { return boolBit(s.Clk1x) }},
	{"#", "clk_2x", 1, func(s *dut.Signals) uint64 { return boolBit(s.Clk2x) }},
	{"$", "wb_cyc", 1, func(s *dut.Signals) uint64 { return boolBit(s.WbCyc) }},
	{"%", "wb_stb", 1, func(s *dut.Signals) uint64 { return boolBit(s.WbStb) }},
	{"&", "wb_we", 1, func(s *dut.Signals) uint64 { return boolBit(s.WbWe) }},
	{"'", "wb_sel", 4, func(s *dut.Signals) uint64 { return uint64(s.WbSel & 0xF) }},
	{"(", "wb_adr", 32, func(s *dut.Signals) uint64 { return uint64(s.WbAdr) }},
	{")", "wb_datw", 32, func(s *dut.Signals) uint64 { return uint64(s.WbDatW) }},
	{"*", "wb_datr", 32, func(s *dut.Signals) uint64 { return uint64(s.WbDatR) }},
	{"+", "wb_ack", 1, func(s *dut.Signals) uint64 { return boolBit(s.WbAck) }},
}

// A VCDWriter dumps the bus lines as a Value Change Dump. Only the values that
// changed since the previous dump are written. The output is flushed after
// every dump so that a killed run still leaves a readable file.
type VCDWriter struct {
	path      string
	out       io.Writer
	closer    io.Closer
	buf       *bufio.Writer
	timescale string
	scope     string

	freq          timing.Freq
	ticksPerCycle int

	last    []uint64
	started bool
}

// NewVCDFile creates a writer that creates the file at path on Open.
func NewVCDFile(path string) *VCDWriter {
	return &VCDWriter{
		path:      path,
		timescale: "1ns",
		scope:     "top",
	}
}

// NewVCDWriter creates a writer over an opened stream.
func NewVCDWriter(w io.Writer) *VCDWriter {
	return &VCDWriter{
		out:       w,
		timescale: "1ns",
		scope:     "top",
	}
}

// WithTimescale sets the unit of raw tick timestamps, e.g. "1ns".
func (w *VCDWriter) WithTimescale(timescale string) *VCDWriter {
	w.timescale = timescale
	return w
}

// WithClock stamps the dump with picoseconds instead of raw tick numbers. The
// bus clock runs at freq and spans ticksPerCycle fast ticks.
func (w *VCDWriter) WithClock(freq timing.Freq, ticksPerCycle int) *VCDWriter {
	if freq <= 0 || ticksPerCycle <= 0 {
		panic("bus clock must be positive")
	}

	w.freq = freq
	w.ticksPerCycle = ticksPerCycle
	w.timescale = "1ps"

	return w
}

func (w *VCDWriter) timestamp(tick uint64) uint64 {
	if w.freq == 0 {
		return tick
	}

	return vcdResolution.Cycle(w.freq.TickTime(tick, w.ticksPerCycle))
}

// WithScope sets the name of the module scope the lines are placed in.
func (w *VCDWriter) WithScope(scope string) *VCDWriter {
	w.scope = scope
	return w
}

// Open creates the output file if needed and writes the header.
func (w *VCDWriter) Open() error {
	if w.out == nil {
		f, err := os.Create(w.path)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}

		w.out = f
		w.closer = f
	}

	w.buf = bufio.NewWriter(w.out)
	w.last = make([]uint64, len(vcdVars))
	w.started = false

	fmt.Fprintf(w.buf, "$version wbsim $end\n")
	fmt.Fprintf(w.buf, "$timescale %s $end\n", w.timescale)
	fmt.Fprintf(w.buf, "$scope module %s $end\n", w.scope)

	for _, v := range vcdVars {
		fmt.Fprintf(w.buf, "$var wire %d %s %s $end\n", v.width, v.id, v.name)
	}

	fmt.Fprintf(w.buf, "$upscope $end\n$enddefinitions $end\n")

	return w.buf.Flush()
}

// Dump writes the lines that changed at tick.
func (w *VCDWriter) Dump(tick uint64, lines dut.Signals) error {
	if w.buf == nil {
		return fmt.Errorf("trace not opened")
	}

	if !w.started {
		w.dumpAll(tick, &lines)
		return w.buf.Flush()
	}

	stamped := false
	for i, v := range vcdVars {
		value := v.value(&lines)
		if value == w.last[i] {
			continue
		}

		if !stamped {
			fmt.Fprintf(w.buf, "#%d\n", w.timestamp(tick))
			stamped = true
		}

		w.writeValue(v, value)
		w.last[i] = value
	}

	return w.buf.Flush()
}

func (w *VCDWriter) dumpAll(tick uint64, lines *dut.Signals) {
	fmt.Fprintf(w.buf, "#%d\n$dumpvars\n", w.timestamp(tick))

	for i, v := range vcdVars {
		value := v.value(lines)
		w.writeValue(v, value)
		w.last[i] = value
	}

	fmt.Fprintf(w.buf, "$end\n")
	w.started = true
}

func (w *VCDWriter) writeValue(v vcdVar, value uint64) {
	if v.width == 1 {
		fmt.Fprintf(w.buf, "%d%s\n", value, v.id)
		return
	}

	fmt.Fprintf(w.buf, "b%s %s\n", strconv.FormatUint(value, 2), v.id)
}

// Close flushes the output and closes the file it created.
func (w *VCDWriter) Close() error {
	if w.buf != nil {
		if err := w.buf.Flush(); err != nil {
			return err
		}
	}

	if w.closer != nil {
		err := w.closer.Close()
		w.closer = nil

		return err
	}

	return nil
}
