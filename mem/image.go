package mem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadImage reads whitespace-separated hexadecimal words from r and writes
// them to consecutive words starting at base. Loading stops quietly at the
// first token that is not a 32-bit hex number, or at the end of r. Words
// written before the stop are kept. It returns the number of words written.
func (s *Storage) LoadImage(r io.Reader, base uint32) int {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	addr := base
	n := 0

	for scanner.Scan() {
		word, ok := parseHexWord(scanner.Text())
		if !ok {
			break
		}

		s.WriteWord(addr, word)
		addr += 4
		n++
	}

	return n
}

func parseHexWord(token string) (uint32, bool) {
	digits := strings.TrimPrefix(strings.TrimPrefix(token, "0x"), "0X")

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, false
	}

	return uint32(v), true
}

// LoadImageFile loads the image stored at path. A file that cannot be opened
// leaves the storage untouched; the error is returned only so that the caller
// can report it.
func (s *Storage) LoadImageFile(path string, base uint32) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open memory image: %w", err)
	}
	defer f.Close()

	return s.LoadImage(f, base), nil
}

// DumpImage writes the words from `from` to `to`, both inclusive, in the
// format LoadImage reads, eight words per line. Unmapped words are written as
// the default value so that the dump reloads at `from` unchanged.
func (s *Storage) DumpImage(w io.Writer, from, to uint32) error {
	if to < from {
		return fmt.Errorf("dump range %08X-%08X is empty", from, to)
	}

	bw := bufio.NewWriter(w)

	col := 0
	for addr := uint64(from); addr <= uint64(to); addr += 4 {
		sep := " "
		if col == 7 || addr+4 > uint64(to) {
			sep = "\n"
		}

		if _, err := fmt.Fprintf(bw, "%08X%s", s.Read(uint32(addr)), sep); err != nil {
			return err
		}

		col = (col + 1) % 8
	}

	return bw.Flush()
}

// A Preload is a single word written before the image is loaded.
type Preload struct {
	Address uint32
	Value   uint32
}

// String prints the preload in the form ParsePreload accepts.
func (p Preload) String() string {
	return fmt.Sprintf("%08X=%08X", p.Address, p.Value)
}

// ParsePreload parses an "ADDR=VALUE" pair of hex numbers.
func ParsePreload(s string) (Preload, error) {
	addrStr, valStr, found := strings.Cut(s, "=")
	if !found {
		return Preload{}, fmt.Errorf("preload %q: missing '='", s)
	}

	addr, ok := parseHexWord(strings.TrimSpace(addrStr))
	if !ok {
		return Preload{}, fmt.Errorf("preload %q: bad address", s)
	}

	val, ok := parseHexWord(strings.TrimSpace(valStr))
	if !ok {
		return Preload{}, fmt.Errorf("preload %q: bad value", s)
	}

	return Preload{Address: addr, Value: val}, nil
}

// Apply writes every preload word into the storage.
func (s *Storage) Apply(preloads []Preload) {
	for _, p := range preloads {
		s.WriteWord(p.Address, p.Value)
	}
}
