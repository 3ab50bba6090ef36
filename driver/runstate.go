package driver

// TerminationReason tells why a run stopped.
type TerminationReason int

// The termination reasons.
const (
	NotTerminated TerminationReason = iota
	DeviceFinished
	CycleLimit
	Cancelled
	TraceFailed
)

func (r TerminationReason) String() string {
	switch r {
	case NotTerminated:
		return "running"
	case DeviceFinished:
		return "device finished"
	case CycleLimit:
		return "cycle limit"
	case Cancelled:
		return "cancelled"
	case TraceFailed:
		return "trace failed"
	default:
		return "unknown"
	}
}

// RunState tracks the bus-cycle counter and the reset and termination flags.
type RunState struct {
	// Cycle is the current bus cycle, starting at 1.
	Cycle uint64

	ResetAsserted bool
	ResetReleased bool

	Terminated bool
	Reason     TerminationReason
}

func newRunState() RunState {
	return RunState{Cycle: 1}
}

func (s *RunState) terminate(reason TerminationReason) {
	if s.Terminated {
		return
	}

	s.Terminated = true
	s.Reason = reason
}
