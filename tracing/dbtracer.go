package tracing

import (
	"github.com/sarchlab/wbsim/datarecording"
	"github.com/sarchlab/wbsim/sim/timing"
	"github.com/sarchlab/wbsim/wishbone"
)

// TransactionTable is the table that DBTracer writes.
const TransactionTable = "wb_transactions"

// TransactionEntry is one row of the transaction table.
type TransactionEntry struct {
	ID            string
	Kind          string
	Address       uint32
	ByteEnable    uint8
	Data          uint32
	AcceptedCycle uint64
	RetiredCycle  uint64
	StartTime     float64
	EndTime       float64
}

// DBTracer records every retired transaction into a data recorder. Times are
// taken at the end of the accepting and retiring bus cycles.
type DBTracer struct {
	recorder datarecording.DataRecorder
	freq     timing.Freq
}

// NewDBTracer creates a DBTracer and the table it writes to.
func NewDBTracer(
	recorder datarecording.DataRecorder,
	freq timing.Freq,
) *DBTracer {
	recorder.CreateTable(TransactionTable, TransactionEntry{})

	return &DBTracer{
		recorder: recorder,
		freq:     freq,
	}
}

// StartTransaction does nothing. Rows are written once the data is known.
func (t *DBTracer) StartTransaction(_ *wishbone.Transaction) {
}

// EndTransaction records the transaction.
func (t *DBTracer) EndTransaction(tr *wishbone.Transaction) {
	t.recorder.InsertData(TransactionTable, TransactionEntry{
		ID:            tr.ID,
		Kind:          tr.Kind.String(),
		Address:       tr.Address,
		ByteEnable:    tr.ByteEnable,
		Data:          tr.Data,
		AcceptedCycle: tr.AcceptedCycle,
		RetiredCycle:  tr.RetiredCycle,
		StartTime:     t.freq.NCycles(tr.AcceptedCycle),
		EndTime:       t.freq.NCycles(tr.RetiredCycle),
	})
}
