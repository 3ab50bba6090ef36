package tracing

import (
	"log"

	"github.com/sarchlab/wbsim/wishbone"
)

// LogTracer prints a line for every accepted request, and optionally for
// every acknowledge.
type LogTracer struct {
	logger  *log.Logger
	logAcks bool
}

// NewLogTracer creates a LogTracer writing to logger.
func NewLogTracer(logger *log.Logger, logAcks bool) *LogTracer {
	return &LogTracer{
		logger:  logger,
		logAcks: logAcks,
	}
}

// StartTransaction logs the request.
func (t *LogTracer) StartTransaction(tr *wishbone.Transaction) {
	t.logger.Printf("%08d %s", tr.AcceptedCycle, tr)
}

// EndTransaction logs the acknowledge.
func (t *LogTracer) EndTransaction(tr *wishbone.Transaction) {
	if !t.logAcks {
		return
	}

	t.logger.Printf("%08d WB ACK RA=%08X DATA=%08X",
		tr.RetiredCycle, tr.Address, tr.Data)
}
