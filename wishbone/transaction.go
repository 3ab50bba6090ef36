package wishbone

import "fmt"

// Kind tells if a transaction reads or writes memory.
type Kind int

// The transaction kinds.
const (
	Read Kind = iota
	Write
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "RD"
	case Write:
		return "WR"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// A Transaction is a bus request accepted by the responder. At most one is
// live at a time.
type Transaction struct {
	ID            string
	Kind          Kind
	Address       uint32
	Data          uint32
	ByteEnable    uint8
	AcceptedCycle uint64
	RetiredCycle  uint64
}

// Retired tells if the transaction has been acknowledged.
func (t *Transaction) Retired() bool {
	return t.RetiredCycle != 0
}

func (t *Transaction) String() string {
	if t.Kind == Write {
		return fmt.Sprintf("WB WR RA=%08X SEL=%X DATA=%08X",
			t.Address, t.ByteEnable, t.Data)
	}

	return fmt.Sprintf("WB RD RA=%08X", t.Address)
}

// TransactionBuilder can build transactions.
type TransactionBuilder struct {
	id         string
	kind       Kind
	address    uint32
	data       uint32
	byteEnable uint8
	cycle      uint64
}

// WithID sets the ID of the transaction to build.
func (b TransactionBuilder) WithID(id string) TransactionBuilder {
	b.id = id
	return b
}

// WithKind sets the kind of the transaction to build.
func (b TransactionBuilder) WithKind(kind Kind) TransactionBuilder {
	b.kind = kind
	return b
}

// WithAddress sets the address of the transaction to build.
func (b TransactionBuilder) WithAddress(address uint32) TransactionBuilder {
	b.address = address
	return b
}

// WithData sets the write data of the transaction to build.
func (b TransactionBuilder) WithData(data uint32) TransactionBuilder {
	b.data = data
	return b
}

// WithByteEnable sets the write lane selector of the transaction to build.
func (b TransactionBuilder) WithByteEnable(sel uint8) TransactionBuilder {
	b.byteEnable = sel
	return b
}

// WithAcceptedCycle sets the bus cycle at which the transaction was accepted.
func (b TransactionBuilder) WithAcceptedCycle(cycle uint64) TransactionBuilder {
	b.cycle = cycle
	return b
}

// Build creates a new Transaction. Reads never carry data or a lane mask.
func (b TransactionBuilder) Build() *Transaction {
	t := &Transaction{
		ID:            b.id,
		Kind:          b.kind,
		Address:       b.address,
		AcceptedCycle: b.cycle,
	}

	if b.kind == Write {
		t.Data = b.data
		t.ByteEnable = b.byteEnable
	}

	return t
}
