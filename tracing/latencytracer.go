package tracing

import (
	"sync"

	"github.com/sarchlab/wbsim/wishbone"
)

// TransactionFilter tells if a transaction should be counted.
type TransactionFilter func(t *wishbone.Transaction) bool

// KindFilter keeps only the transactions of one kind.
func KindFilter(kind wishbone.Kind) TransactionFilter {
	return func(t *wishbone.Transaction) bool {
		return t.Kind == kind
	}
}

// LatencyTracer keeps the average number of bus cycles between accepting and
// acknowledging a transaction. It can be read from other goroutines.
type LatencyTracer struct {
	filter TransactionFilter

	lock       sync.Mutex
	inflight   map[string]uint64
	average    float64
	maxLatency uint64
	count      uint64
}

// NewLatencyTracer creates a LatencyTracer. A nil filter counts every
// transaction.
func NewLatencyTracer(filter TransactionFilter) *LatencyTracer {
	return &LatencyTracer{
		filter:   filter,
		inflight: make(map[string]uint64),
	}
}

// AverageLatency returns the average latency in bus cycles.
func (t *LatencyTracer) AverageLatency() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.average
}

// MaxLatency returns the longest latency seen, in bus cycles.
func (t *LatencyTracer) MaxLatency() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxLatency
}

// TotalCount returns the number of finished transactions.
func (t *LatencyTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// StartTransaction records when the transaction was accepted.
func (t *LatencyTracer) StartTransaction(tr *wishbone.Transaction) {
	if t.filter != nil && !t.filter(tr) {
		return
	}

	t.lock.Lock()
	t.inflight[tr.ID] = tr.AcceptedCycle
	t.lock.Unlock()
}

// EndTransaction folds the latency of the transaction into the average.
func (t *LatencyTracer) EndTransaction(tr *wishbone.Transaction) {
	t.lock.Lock()
	defer t.lock.Unlock()

	accepted, ok := t.inflight[tr.ID]
	if !ok {
		return
	}

	latency := tr.RetiredCycle - accepted
	t.average = (t.average*float64(t.count) + float64(latency)) /
		float64(t.count+1)
	t.count++

	if latency > t.maxLatency {
		t.maxLatency = latency
	}

	delete(t.inflight, tr.ID)
}
