package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/sarchlab/wbsim/datarecording"
	"github.com/sarchlab/wbsim/driver"
	"github.com/sarchlab/wbsim/dut"
	"github.com/sarchlab/wbsim/dut/scripted"
	"github.com/sarchlab/wbsim/mem"
	"github.com/sarchlab/wbsim/monitoring"
	"github.com/sarchlab/wbsim/sim/id"
	"github.com/sarchlab/wbsim/sim/timing"
	"github.com/sarchlab/wbsim/tracing"
	"github.com/spf13/cobra"
)

type runOptions struct {
	resetCycles     uint64
	threadRunCycle  uint64
	runCycles       uint64
	heartbeatCycles uint64

	imagePath    string
	imageBase    uint32
	preloads     []string
	defaultValue uint32
	littleEndian bool
	logStores    bool
	freqMHz      float64

	scriptPath string
	tracePath  string
	recordPath string
	logAcks    bool

	parallelIDs bool

	monitor     bool
	monitorPort int
	openBrowser bool

	snapshotPath string
	snapshotFrom uint32
	snapshotTo   uint32
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the emulation until the master finishes or the cycle limit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runSimulation(ctx, runOpts, cmd.OutOrStdout())
	},
}

func init() {
	d := driver.DefaultConfig()
	f := runCmd.Flags()

	f.Uint64Var(&runOpts.resetCycles, "reset-cycles", d.ResetCycles,
		"last bus cycle with reset asserted")
	f.Uint64Var(&runOpts.threadRunCycle, "thread-run-cycle", d.ThreadRunCycle,
		"cycle at which core threads start, reported only")
	f.Uint64Var(&runOpts.runCycles, "run-cycles", d.RunCycles,
		"stop after this many bus cycles")
	f.Uint64Var(&runOpts.heartbeatCycles, "heartbeat-cycles", d.HeartbeatCycles,
		"bus cycles between heartbeats")

	f.StringVar(&runOpts.imagePath, "image", d.ImagePath,
		"memory image of hex words, empty to skip")
	f.Uint32Var(&runOpts.imageBase, "image-base", d.ImageBase,
		"address of the first image word")
	f.StringSliceVar(&runOpts.preloads, "preload", preloadStrings(d.Preload),
		"ADDR=VALUE words written before the image")
	f.Uint32Var(&runOpts.defaultValue, "default-value", d.DefaultValue,
		"value read from unmapped addresses")
	f.BoolVar(&runOpts.littleEndian, "little-endian", d.LittleEndian,
		"mark the memory as little-endian")
	f.BoolVar(&runOpts.logStores, "log-stores", d.LogStores,
		"log every memory update")
	f.Float64Var(&runOpts.freqMHz, "freq", float64(d.Freq/timing.MHz),
		"bus clock frequency in MHz, used for timestamps")

	f.StringVar(&runOpts.scriptPath, "script", "",
		"bus master script, empty to fetch the reset vector and idle")
	f.StringVar(&runOpts.tracePath, "trace", "a2onode.vcd",
		"VCD waveform file, empty to disable")
	f.StringVar(&runOpts.recordPath, "record", "",
		"SQLite recording name without extension or a clickhouse:// DSN, "+
			"empty to disable")
	f.BoolVar(&runOpts.logAcks, "log-acks", false,
		"also log every acknowledge")
	f.BoolVar(&runOpts.parallelIDs, "parallel-ids", false,
		"give transactions globally unique ids instead of counting from 1")

	f.BoolVar(&runOpts.monitor, "monitor", false,
		"serve the run status over HTTP")
	f.IntVar(&runOpts.monitorPort, "monitor-port", 0,
		"port of the monitoring server, 0 for a random port")
	f.BoolVar(&runOpts.openBrowser, "open-browser", false,
		"open the monitoring page in a browser")

	f.StringVar(&runOpts.snapshotPath, "snapshot", "",
		"write the memory to this image file after the run")
	f.Uint32Var(&runOpts.snapshotFrom, "snapshot-from", 0,
		"first address of the memory snapshot")
	f.Uint32Var(&runOpts.snapshotTo, "snapshot-to", 0xFC,
		"last address of the memory snapshot")

	rootCmd.AddCommand(runCmd)
}

func preloadStrings(preloads []mem.Preload) []string {
	out := make([]string, 0, len(preloads))
	for _, p := range preloads {
		out = append(out, p.String())
	}

	return out
}

func (o runOptions) config() (driver.Config, error) {
	c := driver.Config{
		ResetCycles:     o.resetCycles,
		ThreadRunCycle:  o.threadRunCycle,
		RunCycles:       o.runCycles,
		HeartbeatCycles: o.heartbeatCycles,
		ImagePath:       o.imagePath,
		ImageBase:       o.imageBase,
		DefaultValue:    o.defaultValue,
		LittleEndian:    o.littleEndian,
		LogStores:       o.logStores,
		Freq:            timing.Freq(o.freqMHz) * timing.MHz,
	}

	for _, p := range o.preloads {
		preload, err := mem.ParsePreload(p)
		if err != nil {
			return c, err
		}

		c.Preload = append(c.Preload, preload)
	}

	return c, c.Validate()
}

func (o runOptions) master() (*scripted.Master, error) {
	if o.scriptPath == "" {
		return scripted.NewMaster([]scripted.Op{
			scripted.Read(0xFFFFFFFC),
		}).Hold(), nil
	}

	f, err := os.Open(o.scriptPath)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	ops, err := scripted.ParseScript(f)
	if err != nil {
		return nil, err
	}

	return scripted.NewMaster(ops), nil
}

func runSimulation(ctx context.Context, o runOptions, out io.Writer) error {
	config, err := o.config()
	if err != nil {
		return err
	}

	master, err := o.master()
	if err != nil {
		return err
	}

	logger := log.New(out, "", 0)

	var recorder datarecording.DataRecorder
	if o.recordPath != "" {
		recorder, err = datarecording.NewForTarget(o.recordPath)
		if err != nil {
			return err
		}
	}

	d := buildDriver(config, master, logger, o, recorder)

	tracing.CollectTrace(d.Responder(), tracing.NewLogTracer(logger, o.logAcks))

	latency := tracing.NewLatencyTracer(nil)
	tracing.CollectTrace(d.Responder(), latency)

	if recorder != nil {
		tracing.CollectTrace(d.Responder(),
			tracing.NewDBTracer(recorder, config.Freq))
	}

	if o.monitor {
		m := startMonitor(d, o)
		defer func() { _ = m.StopServer() }()
	}

	state, runErr := d.Run(ctx)

	if recorder != nil {
		runErr = errors.Join(runErr, recorder.Close())
	}

	if o.snapshotPath != "" {
		runErr = errors.Join(runErr,
			writeSnapshot(d.Context().Storage, o.snapshotPath,
				o.snapshotFrom, o.snapshotTo))
	}

	if runErr != nil {
		return runErr
	}

	return report(out, state, d, master, latency)
}

func buildDriver(
	config driver.Config,
	device dut.Device,
	logger *log.Logger,
	o runOptions,
	recorder datarecording.DataRecorder,
) *driver.Driver {
	b := driver.MakeBuilder().
		WithConfig(config).
		WithDevice(device).
		WithLogger(logger)

	if o.tracePath != "" {
		b = b.WithSink(tracing.NewVCDFile(o.tracePath).
			WithClock(config.Freq, len(timing.DefaultPhaseTable)))
	}

	if o.parallelIDs {
		b = b.WithIDGenerator(id.NewParallelIDGenerator())
	}

	if recorder != nil {
		b = b.
			WithHeartbeat(driver.LogHeartbeat{Logger: logger}).
			WithHeartbeat(driver.NewRecordingHeartbeat(recorder))
	}

	return b.Build()
}

type responderView struct {
	State   string
	Pending string
	Reads   uint64
	Writes  uint64
}

type storageView struct {
	MappedWords  int
	DefaultValue uint32
	LittleEndian bool
}

func startMonitor(d *driver.Driver, o runOptions) *monitoring.Monitor {
	m := monitoring.NewMonitor().
		WithPortNumber(o.monitorPort).
		WithBrowser(o.openBrowser)

	m.RegisterStatusSource(d)

	m.RegisterComponent("runstate", func() any {
		s := d.Status()
		return &s
	})
	m.RegisterComponent("responder", func() any {
		s := d.Status()
		v := &responderView{State: s.ResponderState, Reads: s.Reads, Writes: s.Writes}

		if s.Pending != nil {
			v.Pending = s.Pending.String()
		}

		return v
	})
	m.RegisterComponent("storage", func() any {
		return &storageView{
			MappedWords:  d.Status().MappedWords,
			DefaultValue: o.defaultValue,
			LittleEndian: o.littleEndian,
		}
	})

	bar := m.CreateProgressBar("Transactions", 0)
	tracing.CollectTrace(d.Responder(), monitoring.TransactionProgress{Bar: bar})

	m.StartServer()

	return m
}

func writeSnapshot(s *mem.Storage, path string, from, to uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	if err := s.DumpImage(f, from, to); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}

	return f.Close()
}

func report(
	out io.Writer,
	state driver.RunState,
	d *driver.Driver,
	master *scripted.Master,
	latency *tracing.LatencyTracer,
) error {
	r := d.Responder()

	fmt.Fprintf(out, "Run ended at cycle %d (%s): %d reads, %d writes.\n",
		state.Cycle, state.Reason, r.Reads(), r.Writes())

	if latency.TotalCount() > 0 {
		fmt.Fprintf(out, "Latency: %.2f cycles average, %d cycles max.\n",
			latency.AverageLatency(), latency.MaxLatency())
	}

	bad := master.Mismatches()
	for _, res := range bad {
		fmt.Fprintf(out, "MISMATCH %s\n", res)
	}

	if len(bad) > 0 {
		return fmt.Errorf("%d reads returned unexpected data", len(bad))
	}

	return nil
}
