// Package mem provides the sparse word memory that backs the bus slave.
package mem

import (
	"sort"
)

// A StoreLogger receives one human-readable line per memory update.
// *log.Logger satisfies it.
type StoreLogger interface {
	Printf(format string, v ...any)
}

// A Storage is a sparse, word-addressable memory. Addresses are byte
// addresses of 32-bit words; callers are expected to keep them word aligned.
// Words that were never written read as the default value and allocate
// nothing.
type Storage struct {
	data         map[uint32]uint32
	defaultValue uint32
	littleEndian bool
	logStores    bool
	logger       StoreLogger
}

// DefaultValue returns the value read from unmapped addresses.
func (s *Storage) DefaultValue() uint32 {
	return s.defaultValue
}

// LittleEndian reports the byte order hint given to image loaders. The hint
// is never applied to the stored words.
func (s *Storage) LittleEndian() bool {
	return s.littleEndian
}

// LogStores tells if every update is reported to the store logger.
func (s *Storage) LogStores() bool {
	return s.logStores
}

// Read returns the word stored at addr, or the default value if addr has never
// been written. Read does not allocate.
func (s *Storage) Read(addr uint32) uint32 {
	word, ok := s.data[addr]
	if !ok {
		return s.defaultValue
	}

	return word
}

// IsMapped tells if addr has been written.
func (s *Storage) IsMapped(addr uint32) bool {
	_, ok := s.data[addr]
	return ok
}

// WriteWord replaces the full word at addr.
func (s *Storage) WriteWord(addr, word uint32) {
	old := s.Read(addr)
	s.data[addr] = word
	s.logStore(addr, old, word)
}

// WriteMasked replaces only the byte lanes selected by byteEnable. Bit 3
// selects the most significant byte and bit 0 the least significant one; bits
// above bit 3 are ignored. A zero mask touches nothing, not even the log.
func (s *Storage) WriteMasked(addr uint32, byteEnable uint8, word uint32) {
	mask := ByteMask(byteEnable)
	if mask == 0 {
		return
	}

	old := s.Read(addr)
	merged := (old &^ mask) | (word & mask)
	s.data[addr] = merged
	s.logStore(addr, old, merged)
}

// ByteMask expands a 4-bit lane selector into a 32-bit data mask.
func ByteMask(byteEnable uint8) uint32 {
	var mask uint32

	for lane := uint(0); lane < 4; lane++ {
		if byteEnable&(1<<lane) != 0 {
			mask |= 0xFF << (8 * lane)
		}
	}

	return mask
}

func (s *Storage) logStore(addr, old, word uint32) {
	if !s.logStores || s.logger == nil {
		return
	}

	s.logger.Printf(" * Mem Update @%08X %08X->%08X", addr, old, word)
}

// Len returns the number of mapped words.
func (s *Storage) Len() int {
	return len(s.data)
}

// Addresses returns every mapped address in ascending order.
func (s *Storage) Addresses() []uint32 {
	addrs := make([]uint32, 0, len(s.data))
	for addr := range s.data {
		addrs = append(addrs, addr)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	return addrs
}
