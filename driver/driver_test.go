package driver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sarchlab/wbsim/dut"
	"github.com/sarchlab/wbsim/dut/scripted"
	"github.com/sarchlab/wbsim/mem"
	"github.com/sarchlab/wbsim/wishbone"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingDevice struct {
	dut.Signals

	resets    []bool
	clk1x     []bool
	clk2x     []bool
	finishAt  int
	finalized int
}

func (p *recordingDevice) Evaluate() {
	p.resets = append(p.resets, p.Rst)
	p.clk1x = append(p.clk1x, p.Clk1x)
	p.clk2x = append(p.clk2x, p.Clk2x)
}

func (p *recordingDevice) Finalize() {
	p.finalized++
}

func (p *recordingDevice) Finished() bool {
	return p.finishAt > 0 && len(p.resets) >= p.finishAt
}

type heartbeatLog struct {
	beats  []uint64
	events []string
}

func (h *heartbeatLog) Heartbeat(s Status) {
	h.beats = append(h.beats, s.Cycle)
}

func (h *heartbeatLog) Event(cycle uint64, msg string) {
	h.events = append(h.events, fmt.Sprintf("%d %s", cycle, msg))
}

func quietConfig() Config {
	c := DefaultConfig()
	c.ImagePath = ""
	c.ResetCycles = 2
	c.RunCycles = 10
	c.HeartbeatCycles = 1000

	return c
}

var _ = Describe("Driver", func() {
	var (
		config  Config
		device  *recordingDevice
		beats   *heartbeatLog
		builder Builder
	)

	BeforeEach(func() {
		config = quietConfig()
		device = &recordingDevice{}
		beats = &heartbeatLog{}
		builder = MakeBuilder().
			WithLogger(log.New(GinkgoWriter, "", 0)).
			WithDevice(device).
			WithHeartbeat(beats)
	})

	It("should refuse to build without a device", func() {
		Expect(func() { MakeBuilder().Build() }).To(Panic())
	})

	It("should refuse to build with an invalid config", func() {
		config.RunCycles = 0
		Expect(func() {
			builder.WithConfig(config).Build()
		}).To(Panic())
	})

	It("should refuse to step before start", func() {
		d := builder.WithConfig(config).Build()

		Expect(d.Step()).To(HaveOccurred())
	})

	It("should publish its parameters as soon as it is built", func() {
		d := builder.WithConfig(config).Build()

		status := d.Status()

		Expect(status.RunCycles).To(Equal(uint64(10)))
		Expect(status.Cycle).To(Equal(uint64(1)))
		Expect(status.Terminated).To(BeFalse())
	})

	It("should stop at the first cycle past the ceiling", func() {
		config.RunCycles = 5
		d := builder.WithConfig(config).Build()

		state, err := d.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(state.Terminated).To(BeTrue())
		Expect(state.Reason).To(Equal(CycleLimit))
		Expect(state.Cycle).To(Equal(uint64(6)))
		Expect(d.Context().Clock.Tick()).To(Equal(uint64(20)))
		Expect(device.resets).To(HaveLen(20))
	})

	It("should hold reset for the first cycles only", func() {
		config.ResetCycles = 3
		d := builder.WithConfig(config).Build()

		_, err := d.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		for i, rst := range device.resets {
			Expect(rst).To(Equal(i < 12), "evaluation %d", i)
		}
	})

	It("should release reset at start when no reset cycles are asked", func() {
		config.ResetCycles = 0
		d := builder.WithConfig(config).Build()

		Expect(d.Start()).To(Succeed())

		Expect(d.Context().State.ResetReleased).To(BeTrue())
		Expect(device.Rst).To(BeFalse())
		Expect(beats.events).To(Equal([]string{
			"1 Resetting...",
			"1 Releasing reset.",
		}))
	})

	It("should toggle the double clock twice per bus clock", func() {
		d := builder.WithConfig(config).Build()
		Expect(d.Start()).To(Succeed())

		for i := 0; i < 8; i++ {
			Expect(d.Step()).To(Succeed())
		}

		Expect(device.clk1x).To(Equal(
			[]bool{true, true, false, false, true, true, false, false}))
		Expect(device.clk2x).To(Equal(
			[]bool{true, false, true, false, true, false, true, false}))
	})

	It("should count one cycle every four ticks", func() {
		d := builder.WithConfig(config).Build()
		Expect(d.Start()).To(Succeed())

		for i := 0; i < 3; i++ {
			Expect(d.Step()).To(Succeed())
		}
		Expect(d.Context().State.Cycle).To(Equal(uint64(1)))

		Expect(d.Step()).To(Succeed())
		Expect(d.Context().State.Cycle).To(Equal(uint64(2)))
	})

	It("should ack a read exactly one cycle after accepting it", func() {
		storage := mem.MakeStorageBuilder().Build()
		storage.WriteWord(0x10, 0xCAFE)
		d := builder.WithConfig(config).WithStorage(storage).Build()
		device.WbCyc = true
		device.WbStb = true
		device.WbAdr = 0x10

		stepCycle := func() {
			for i := 0; i < 4; i++ {
				Expect(d.Step()).To(Succeed())
			}
		}

		Expect(d.Start()).To(Succeed())

		stepCycle()
		Expect(d.Responder().State()).To(Equal(wishbone.ReadPending))
		Expect(device.WbAck).To(BeFalse())

		stepCycle()
		Expect(d.Responder().State()).To(Equal(wishbone.Idle))
		Expect(device.WbAck).To(BeTrue())
		Expect(device.WbDatR).To(Equal(uint32(0xCAFE)))
		Expect(d.Responder().Reads()).To(Equal(uint64(1)))

		stepCycle()
		Expect(d.Responder().State()).To(Equal(wishbone.ReadPending))
		Expect(device.WbAck).To(BeFalse())
		Expect(device.WbDatR).To(Equal(uint32(0xCAFE)))
	})

	It("should ack an isolated one-cycle read once", func() {
		d := builder.WithConfig(config).Build()
		acks := 0

		Expect(d.Start()).To(Succeed())

		for cycle := 1; cycle <= 6; cycle++ {
			device.WbCyc = cycle == 1
			device.WbStb = cycle == 1
			device.WbAdr = 0x40

			for i := 0; i < 4; i++ {
				Expect(d.Step()).To(Succeed())
			}

			if device.WbAck {
				acks++
				Expect(cycle).To(Equal(2))
			}
		}

		Expect(acks).To(Equal(1))
		Expect(d.Responder().Reads()).To(Equal(uint64(1)))
	})

	It("should stop when the device finishes", func() {
		device.finishAt = 9
		d := builder.WithConfig(config).Build()

		state, err := d.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(state.Reason).To(Equal(DeviceFinished))
		Expect(state.Cycle).To(Equal(uint64(3)))
		Expect(device.finalized).To(Equal(1))
	})

	It("should stop when the context is cancelled", func() {
		d := builder.WithConfig(config).Build()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		state, err := d.Run(ctx)

		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(state.Reason).To(Equal(Cancelled))
		Expect(device.finalized).To(Equal(1))
		Expect(d.Status().Terminated).To(BeTrue())
	})

	It("should send heartbeats and milestones", func() {
		config.RunCycles = 6
		config.HeartbeatCycles = 2
		d := builder.WithConfig(config).Build()

		_, err := d.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(beats.beats).To(Equal([]uint64{2, 4, 6}))
		Expect(beats.events).To(Equal([]string{
			"1 Resetting...",
			"3 Releasing reset.",
			"7 Run ended: cycle limit.",
		}))
	})

	It("should publish the status at every boundary", func() {
		d := builder.WithConfig(config).Build()
		Expect(d.Start()).To(Succeed())

		for i := 0; i < 4; i++ {
			Expect(d.Step()).To(Succeed())
		}

		status := d.Status()
		Expect(status.Cycle).To(Equal(uint64(2)))
		Expect(status.Tick).To(Equal(uint64(4)))
		Expect(status.ResetAsserted).To(BeTrue())
		Expect(status.ResponderState).To(Equal("Idle"))
	})

	It("should preload memory and survive a missing image", func() {
		config.ImagePath = filepath.Join(GinkgoT().TempDir(), "missing.init")
		d := builder.WithConfig(config).Build()

		Expect(d.Start()).To(Succeed())

		Expect(d.Context().Storage.Read(0xFFFFFFFC)).
			To(Equal(uint32(0x48000002)))
		Expect(d.Context().Storage.Len()).To(Equal(1))
	})

	It("should load the memory image at its base", func() {
		path := filepath.Join(GinkgoT().TempDir(), "rom.init")
		Expect(os.WriteFile(path, []byte("11111111 22222222\n"), 0o644)).
			To(Succeed())
		config.ImagePath = path
		config.ImageBase = 0x1000
		d := builder.WithConfig(config).Build()

		Expect(d.Start()).To(Succeed())

		Expect(d.Context().Storage.Read(0x1000)).To(Equal(uint32(0x11111111)))
		Expect(d.Context().Storage.Read(0x1004)).To(Equal(uint32(0x22222222)))
	})

	Context("with a trace sink", func() {
		var (
			mockCtrl *gomock.Controller
			sink     *MockSink
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			sink = NewMockSink(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should dump every tick and close before finalizing", func() {
			config.RunCycles = 2
			d := builder.WithConfig(config).WithSink(sink).Build()

			gomock.InOrder(
				sink.EXPECT().Open().Return(nil),
				sink.EXPECT().Dump(uint64(1), gomock.Any()).
					Do(func(_ uint64, lines dut.Signals) {
						Expect(lines.Rst).To(BeTrue())
						Expect(lines.Clk1x).To(BeTrue())
						Expect(lines.Clk2x).To(BeTrue())
					}).Return(nil),
				sink.EXPECT().Dump(gomock.Any(), gomock.Any()).
					Return(nil).Times(7),
				sink.EXPECT().Close().Do(func() {
					Expect(device.finalized).To(Equal(0))
				}).Return(nil),
			)

			_, err := d.Run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(device.finalized).To(Equal(1))
		})

		It("should fail when the trace cannot open", func() {
			d := builder.WithConfig(config).WithSink(sink).Build()
			sink.EXPECT().Open().Return(errors.New("disk full"))
			sink.EXPECT().Close().Return(nil)

			state, err := d.Run(context.Background())

			Expect(err).To(MatchError(ContainSubstring("disk full")))
			Expect(device.finalized).To(Equal(1))
			Expect(state.Reason).To(Equal(TraceFailed))
			Expect(d.Status().Terminated).To(BeTrue())
		})

		It("should stop and finalize when a dump fails", func() {
			d := builder.WithConfig(config).WithSink(sink).Build()
			sink.EXPECT().Open().Return(nil)
			sink.EXPECT().Dump(gomock.Any(), gomock.Any()).
				Return(errors.New("broken pipe"))
			sink.EXPECT().Close().Return(nil)

			state, err := d.Run(context.Background())

			Expect(err).To(MatchError(ContainSubstring("broken pipe")))
			Expect(device.finalized).To(Equal(1))
			Expect(state.Reason).To(Equal(TraceFailed))
		})
	})
})

var _ = Describe("Driver with a scripted master", func() {
	It("should serve reads and masked writes", func() {
		master := scripted.NewMaster([]scripted.Op{
			scripted.ReadExpect(0xFFFFFFFC, 0x48000002),
			scripted.Write(0x100, 0xF, 0x12345678),
			scripted.Idle(2),
			scripted.Write(0x100, 0x1, 0x000000AB),
			scripted.ReadExpect(0x100, 0x123456AB),
			scripted.ReadExpect(0x200, 0),
		})

		config := quietConfig()
		config.RunCycles = 100
		d := MakeBuilder().
			WithConfig(config).
			WithLogger(log.New(GinkgoWriter, "", 0)).
			WithDevice(master).
			Build()

		state, err := d.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(state.Reason).To(Equal(DeviceFinished))
		Expect(master.Finalized()).To(BeTrue())
		Expect(master.Mismatches()).To(BeEmpty())
		Expect(master.Results()).To(HaveLen(3))
		Expect(d.Responder().Reads()).To(Equal(uint64(3)))
		Expect(d.Responder().Writes()).To(Equal(uint64(2)))
		Expect(d.Context().Storage.Read(0x100)).To(Equal(uint32(0x123456AB)))
	})
})
