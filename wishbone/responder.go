// Package wishbone implements the slave side of a single-ported Wishbone bus
// with a fixed one-cycle memory latency.
package wishbone

import (
	"fmt"

	"github.com/sarchlab/wbsim/mem"
	"github.com/sarchlab/wbsim/sim/hooking"
	"github.com/sarchlab/wbsim/sim/id"
)

// HookPosTransactionStart is triggered when a request is accepted.
var HookPosTransactionStart = &hooking.HookPos{Name: "TransactionStart"}

// HookPosTransactionEnd is triggered when a transaction is acknowledged.
var HookPosTransactionEnd = &hooking.HookPos{Name: "TransactionEnd"}

// State is the responder state.
type State int

// The responder states.
const (
	Idle State = iota
	ReadPending
	WritePending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ReadPending:
		return "ReadPending"
	case WritePending:
		return "WritePending"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Request holds the master-driven lines sampled at a bus-cycle boundary.
type Request struct {
	Cyc  bool
	Stb  bool
	We   bool
	Sel  uint8
	Adr  uint32
	DatW uint32
}

// Response holds the slave-driven lines for the next bus cycle.
type Response struct {
	Ack  bool
	DatR uint32
}

// A Responder accepts one request at a time and acknowledges it exactly one
// bus cycle later.
type Responder struct {
	hooking.HookableBase

	name        string
	storage     *mem.Storage
	idGenerator id.IDGenerator

	state   State
	pending *Transaction
	datR    uint32
	cycle   uint64

	reads, writes uint64
}

// NewResponder creates an idle responder in front of the storage.
func NewResponder(
	name string,
	storage *mem.Storage,
	idGenerator id.IDGenerator,
) *Responder {
	if storage == nil {
		panic("storage must not be nil")
	}

	if idGenerator == nil {
		idGenerator = id.NewIDGenerator()
	}

	return &Responder{
		name:        name,
		storage:     storage,
		idGenerator: idGenerator,
	}
}

// Name returns the name of the responder.
func (r *Responder) Name() string {
	return r.name
}

// State returns the current state.
func (r *Responder) State() State {
	return r.state
}

// Pending returns the live transaction, or nil when idle.
func (r *Responder) Pending() *Transaction {
	return r.pending
}

// Reads returns the number of acknowledged reads.
func (r *Responder) Reads() uint64 {
	return r.reads
}

// Writes returns the number of acknowledged writes.
func (r *Responder) Writes() uint64 {
	return r.writes
}

// Completed returns the number of acknowledged transactions.
func (r *Responder) Completed() uint64 {
	return r.reads + r.writes
}

// Step advances the responder by one bus cycle. It must be called exactly
// once per boundary with the lines the master drives in that cycle. The
// returned response is valid for the following cycle. Ack is high only in the
// cycle that retires a transaction; read data holds its last value otherwise.
func (r *Responder) Step(cycle uint64, lines Request) Response {
	r.cycle = cycle

	switch r.state {
	case ReadPending:
		r.retireRead()
		return Response{Ack: true, DatR: r.datR}
	case WritePending:
		r.retireWrite()
		return Response{Ack: true, DatR: r.datR}
	}

	if lines.Cyc && lines.Stb {
		r.accept(lines)
	}

	return Response{DatR: r.datR}
}

func (r *Responder) accept(lines Request) {
	kind := Read
	r.state = ReadPending

	if lines.We {
		kind = Write
		r.state = WritePending
	}

	r.pending = TransactionBuilder{}.
		WithID(r.idGenerator.Generate()).
		WithKind(kind).
		WithAddress(lines.Adr).
		WithData(lines.DatW).
		WithByteEnable(lines.Sel).
		WithAcceptedCycle(r.cycle).
		Build()

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosTransactionStart,
		Item:   r.pending,
	})
}

func (r *Responder) retireRead() {
	r.datR = r.storage.Read(r.pending.Address)
	r.pending.Data = r.datR
	r.reads++
	r.retire()
}

func (r *Responder) retireWrite() {
	t := r.pending
	r.storage.WriteMasked(t.Address, t.ByteEnable, t.Data)
	r.writes++
	r.retire()
}

func (r *Responder) retire() {
	t := r.pending
	t.RetiredCycle = r.cycle

	r.pending = nil
	r.state = Idle

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosTransactionEnd,
		Item:   t,
	})
}
