package dut

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type lineHolder struct {
	Signals
}

func (l *lineHolder) Evaluate()      {}
func (l *lineHolder) Finalize()      {}
func (l *lineHolder) Finished() bool { return false }

var _ = Describe("Snapshot", func() {
	It("should take outputs from the device and inputs from the driver", func() {
		d := &lineHolder{}
		d.WbCyc = true
		d.WbStb = true
		d.WbWe = true
		d.WbSel = 0x3
		d.WbAdr = 0x80
		d.WbDatW = 0x55
		d.Clk1x = true

		s := Snapshot(d, Signals{Rst: true, Clk2x: true, WbAck: true, WbDatR: 7})

		Expect(s).To(Equal(Signals{
			Rst:    true,
			Clk2x:  true,
			WbCyc:  true,
			WbStb:  true,
			WbWe:   true,
			WbSel:  0x3,
			WbAdr:  0x80,
			WbDatW: 0x55,
			WbDatR: 7,
			WbAck:  true,
		}))
	})
})
