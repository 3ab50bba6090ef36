package tracing

import (
	"bytes"
	"log"

	"github.com/sarchlab/wbsim/mem"
	"github.com/sarchlab/wbsim/sim/id"
	"github.com/sarchlab/wbsim/wishbone"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CollectTrace", func() {
	var (
		mockCtrl  *gomock.Controller
		tracer    *MockTracer
		responder *wishbone.Responder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer(mockCtrl)
		responder = wishbone.NewResponder("WB",
			mem.MakeStorageBuilder().Build(), id.NewIDGenerator())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should forward transaction start and end", func() {
		CollectTrace(responder, tracer)

		gomock.InOrder(
			tracer.EXPECT().StartTransaction(gomock.Any()).
				Do(func(t *wishbone.Transaction) {
					Expect(t.Address).To(Equal(uint32(0x40)))
					Expect(t.Retired()).To(BeFalse())
				}),
			tracer.EXPECT().EndTransaction(gomock.Any()).
				Do(func(t *wishbone.Transaction) {
					Expect(t.RetiredCycle).To(Equal(uint64(2)))
				}),
		)

		responder.Step(1, wishbone.Request{Cyc: true, Stb: true, Adr: 0x40})
		responder.Step(2, wishbone.Request{})
	})

	It("should refuse the same tracer twice", func() {
		CollectTrace(responder, tracer)

		Expect(func() { CollectTrace(responder, tracer) }).To(Panic())
	})
})

var _ = Describe("LogTracer", func() {
	var (
		buf       *bytes.Buffer
		responder *wishbone.Responder
	)

	BeforeEach(func() {
		buf = bytes.NewBuffer(nil)
		responder = wishbone.NewResponder("WB",
			mem.MakeStorageBuilder().Build(), id.NewIDGenerator())
	})

	It("should log requests like the bus monitor", func() {
		CollectTrace(responder, NewLogTracer(log.New(buf, "", 0), false))

		responder.Step(12, wishbone.Request{Cyc: true, Stb: true, Adr: 0xFFFFFFFC})
		responder.Step(13, wishbone.Request{})
		responder.Step(14, wishbone.Request{
			Cyc: true, Stb: true, We: true, Sel: 0xF, Adr: 0x100, DatW: 0xABCD,
		})

		Expect(buf.String()).To(Equal(
			"00000012 WB RD RA=FFFFFFFC\n" +
				"00000014 WB WR RA=00000100 SEL=F DATA=0000ABCD\n"))
	})

	It("should log acks when asked", func() {
		CollectTrace(responder, NewLogTracer(log.New(buf, "", 0), true))

		responder.Step(1, wishbone.Request{Cyc: true, Stb: true, Adr: 0x8})
		responder.Step(2, wishbone.Request{})

		Expect(buf.String()).To(ContainSubstring(
			"00000002 WB ACK RA=00000008 DATA=00000000"))
	})
})
