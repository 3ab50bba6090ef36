package tracing

import (
	"github.com/sarchlab/wbsim/wishbone"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LatencyTracer", func() {
	read := func(id string, accepted, retired uint64) *wishbone.Transaction {
		return &wishbone.Transaction{
			ID:            id,
			Kind:          wishbone.Read,
			AcceptedCycle: accepted,
			RetiredCycle:  retired,
		}
	}

	It("should average the latency of finished transactions", func() {
		t := NewLatencyTracer(nil)

		a := read("1", 10, 11)
		b := read("2", 20, 23)
		t.StartTransaction(a)
		t.StartTransaction(b)
		t.EndTransaction(a)
		t.EndTransaction(b)

		Expect(t.TotalCount()).To(Equal(uint64(2)))
		Expect(t.AverageLatency()).To(BeNumerically("~", 2.0))
		Expect(t.MaxLatency()).To(Equal(uint64(3)))
	})

	It("should skip filtered transactions", func() {
		t := NewLatencyTracer(KindFilter(wishbone.Write))

		tr := read("1", 1, 2)
		t.StartTransaction(tr)
		t.EndTransaction(tr)

		Expect(t.TotalCount()).To(BeZero())
	})
})
