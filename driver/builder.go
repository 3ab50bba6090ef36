package driver

import (
	"log"

	"github.com/sarchlab/wbsim/dut"
	"github.com/sarchlab/wbsim/mem"
	"github.com/sarchlab/wbsim/sim/id"
	"github.com/sarchlab/wbsim/sim/timing"
	"github.com/sarchlab/wbsim/tracing"
	"github.com/sarchlab/wbsim/wishbone"
)

// Builder can build drivers.
type Builder struct {
	config      Config
	device      dut.Device
	storage     *mem.Storage
	sink        tracing.Sink
	heartbeats  []HeartbeatSink
	logger      *log.Logger
	idGenerator id.IDGenerator
	phases      []timing.Phase
}

// MakeBuilder returns a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		config: DefaultConfig(),
	}
}

// WithConfig sets the run parameters.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// WithDevice sets the device under test.
func (b Builder) WithDevice(d dut.Device) Builder {
	b.device = d
	return b
}

// WithStorage sets the memory. Without it, a storage is built from the
// configuration.
func (b Builder) WithStorage(s *mem.Storage) Builder {
	b.storage = s
	return b
}

// WithSink sets where the per-tick trace goes. Without it, nothing is traced.
func (b Builder) WithSink(s tracing.Sink) Builder {
	b.sink = s
	return b
}

// WithHeartbeat adds a heartbeat sink. Without any, heartbeats are logged.
func (b Builder) WithHeartbeat(h HeartbeatSink) Builder {
	b.heartbeats = append(b.heartbeats[:len(b.heartbeats):len(b.heartbeats)], h)
	return b
}

// WithLogger sets the logger used for heartbeats, stores and image loading
// when no dedicated sink is given.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// WithIDGenerator sets how transaction IDs are made.
func (b Builder) WithIDGenerator(g id.IDGenerator) Builder {
	b.idGenerator = g
	return b
}

// WithPhaseTable replaces the default clock phase table.
func (b Builder) WithPhaseTable(phases ...timing.Phase) Builder {
	b.phases = phases
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.device == nil {
		panic("device must be set")
	}

	if err := b.config.Validate(); err != nil {
		panic(err)
	}
}

// Build creates the driver and its simulation context.
func (b Builder) Build() *Driver {
	b.parametersMustBeValid()

	logger := b.logger
	if logger == nil {
		logger = defaultLogger()
	}

	storage := b.storage
	if storage == nil {
		storage = mem.MakeStorageBuilder().
			WithDefaultValue(b.config.DefaultValue).
			WithLittleEndian(b.config.LittleEndian).
			WithStoreLogging(b.config.LogStores).
			WithStoreLogger(logger).
			Build()
	}

	idGenerator := b.idGenerator
	if idGenerator == nil {
		idGenerator = id.NewIDGenerator()
	}

	sink := b.sink
	if sink == nil {
		sink = tracing.NopSink{}
	}

	var heartbeat HeartbeatSink = LogHeartbeat{Logger: logger}
	if len(b.heartbeats) == 1 {
		heartbeat = b.heartbeats[0]
	} else if len(b.heartbeats) > 1 {
		heartbeat = multiHeartbeat(b.heartbeats)
	}

	sim := &SimulationContext{
		Config:    b.config,
		Storage:   storage,
		Responder: wishbone.NewResponder("WB", storage, idGenerator),
		Clock:     timing.NewClockPhaseGenerator(b.phases...),
		State:     newRunState(),
		Device:    b.device,
		Sink:      sink,
		Heartbeat: heartbeat,
	}

	d := &Driver{
		sim:         sim,
		imageLogger: logger,
	}
	d.board.publish(sim.status())

	return d
}
