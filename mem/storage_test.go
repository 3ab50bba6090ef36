package mem

import (
	"fmt"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

var _ = Describe("Storage", func() {
	var (
		logger  *recordingLogger
		storage *Storage
	)

	BeforeEach(func() {
		logger = &recordingLogger{}
		storage = MakeStorageBuilder().
			WithDefaultValue(0xDEADBEEF).
			WithStoreLogging(true).
			WithStoreLogger(logger).
			Build()
	})

	It("should expose the construction options", func() {
		Expect(storage.DefaultValue()).To(Equal(uint32(0xDEADBEEF)))
		Expect(storage.LittleEndian()).To(BeFalse())
		Expect(storage.LogStores()).To(BeTrue())

		le := MakeStorageBuilder().WithLittleEndian(true).Build()
		Expect(le.LittleEndian()).To(BeTrue())
		Expect(le.LogStores()).To(BeFalse())
		Expect(le.DefaultValue()).To(BeZero())
	})

	It("should read the default value from unwritten addresses", func() {
		r := rand.New(rand.NewSource(1))
		for i := 0; i < 100; i++ {
			addr := r.Uint32() &^ 3
			Expect(storage.Read(addr)).To(Equal(uint32(0xDEADBEEF)))
		}

		Expect(storage.Len()).To(BeZero())
	})

	It("should read back full words", func() {
		r := rand.New(rand.NewSource(2))
		for i := 0; i < 100; i++ {
			addr := r.Uint32() &^ 3
			v := r.Uint32()

			storage.WriteWord(addr, v)

			Expect(storage.Read(addr)).To(Equal(v))
			Expect(storage.IsMapped(addr)).To(BeTrue())
		}
	})

	It("should log full word updates", func() {
		storage.WriteWord(0x100, 0x11223344)
		storage.WriteWord(0x100, 0x55667788)

		Expect(logger.lines).To(Equal([]string{
			" * Mem Update @00000100 DEADBEEF->11223344",
			" * Mem Update @00000100 11223344->55667788",
		}))
	})

	It("should not log when store logging is off", func() {
		quiet := MakeStorageBuilder().WithStoreLogger(logger).Build()

		quiet.WriteWord(0, 1)
		quiet.WriteMasked(0, 0xF, 2)

		Expect(logger.lines).To(BeEmpty())
	})

	It("should only replace the selected lanes", func() {
		r := rand.New(rand.NewSource(3))
		for i := 0; i < 200; i++ {
			addr := r.Uint32() &^ 3
			v1, v2 := r.Uint32(), r.Uint32()
			sel := uint8(r.Intn(16))

			storage.WriteWord(addr, v1)
			storage.WriteMasked(addr, sel, v2)

			got := storage.Read(addr)
			for lane := uint(0); lane < 4; lane++ {
				shift := 8 * lane
				gotByte := byte(got >> shift)
				if sel&(1<<lane) != 0 {
					Expect(gotByte).To(Equal(byte(v2 >> shift)))
				} else {
					Expect(gotByte).To(Equal(byte(v1 >> shift)))
				}
			}
		}
	})

	It("should map the highest select bit to the most significant byte", func() {
		storage.WriteWord(0, 0x11223344)

		storage.WriteMasked(0, 0x8, 0xAABBCCDD)
		Expect(storage.Read(0)).To(Equal(uint32(0xAA223344)))

		storage.WriteMasked(0, 0x4, 0xAABBCCDD)
		Expect(storage.Read(0)).To(Equal(uint32(0xAABB3344)))
	})

	It("should leave the lowest lane alone when bit 0 is clear", func() {
		storage.WriteWord(0, 0x11223344)

		storage.WriteMasked(0, 0x2, 0xAABBCCDD)

		Expect(storage.Read(0)).To(Equal(uint32(0x1122CC44)))
	})

	It("should treat a zero mask as a no-op", func() {
		storage.WriteWord(8, 0x12345678)
		logger.lines = nil

		storage.WriteMasked(8, 0, 0xFFFFFFFF)
		storage.WriteMasked(0x40, 0, 0xFFFFFFFF)

		Expect(storage.Read(8)).To(Equal(uint32(0x12345678)))
		Expect(storage.IsMapped(0x40)).To(BeFalse())
		Expect(logger.lines).To(BeEmpty())
	})

	It("should merge into the default value for unmapped words", func() {
		storage.WriteMasked(0x20, 0x1, 0x000000AA)

		Expect(storage.Read(0x20)).To(Equal(uint32(0xDEADBEAA)))
		Expect(logger.lines).To(ConsistOf(
			" * Mem Update @00000020 DEADBEEF->DEADBEAA"))
	})

	It("should ignore select bits above the four lanes", func() {
		Expect(ByteMask(0xF0)).To(BeZero())
		Expect(ByteMask(0x1F)).To(Equal(uint32(0xFFFFFFFF)))
		Expect(ByteMask(0x9)).To(Equal(uint32(0xFF0000FF)))
	})

	It("should list mapped addresses in order", func() {
		storage.WriteWord(0x30, 1)
		storage.WriteWord(0x10, 2)
		storage.WriteWord(0x20, 3)

		Expect(storage.Addresses()).To(Equal([]uint32{0x10, 0x20, 0x30}))
	})
})
