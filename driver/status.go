package driver

import (
	"sync"

	"github.com/sarchlab/wbsim/wishbone"
)

// Status is a copy of the run state that is safe to hand to other goroutines.
type Status struct {
	Cycle          uint64 `json:"cycle"`
	Tick           uint64 `json:"tick"`
	RunCycles      uint64 `json:"run_cycles"`
	ThreadRunCycle uint64 `json:"thread_run_cycle"`
	ResetAsserted  bool   `json:"reset_asserted"`
	Terminated     bool   `json:"terminated"`
	Reason         string `json:"reason"`

	ResponderState string                `json:"responder_state"`
	Pending        *wishbone.Transaction `json:"pending,omitempty"`
	Reads          uint64                `json:"reads"`
	Writes         uint64                `json:"writes"`
	MappedWords    int                   `json:"mapped_words"`
}

type statusBoard struct {
	lock   sync.Mutex
	status Status
}

func (b *statusBoard) publish(s Status) {
	b.lock.Lock()
	b.status = s
	b.lock.Unlock()
}

func (b *statusBoard) read() Status {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.status
}
