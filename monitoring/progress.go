package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/wbsim/wishbone"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// ProgressBarSnapshot is a copy of a progress bar taken under its lock.
type ProgressBarSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// Snapshot copies the bar.
func (b *ProgressBar) Snapshot() ProgressBarSnapshot {
	b.Lock()
	defer b.Unlock()

	return ProgressBarSnapshot{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// Set sets the number of finished elements.
func (b *ProgressBar) Set(finished uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished = finished
}

// SetTotal sets the number of elements to finish.
func (b *ProgressBar) SetTotal(total uint64) {
	b.Lock()
	defer b.Unlock()

	b.Total = total
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// TransactionProgress follows bus transactions on a progress bar. It can be
// attached to a responder with tracing.CollectTrace.
type TransactionProgress struct {
	Bar *ProgressBar
}

// StartTransaction marks one transaction as in progress.
func (p TransactionProgress) StartTransaction(_ *wishbone.Transaction) {
	p.Bar.IncrementInProgress(1)
}

// EndTransaction marks one transaction as finished.
func (p TransactionProgress) EndTransaction(_ *wishbone.Transaction) {
	p.Bar.MoveInProgressToFinished(1)
}
