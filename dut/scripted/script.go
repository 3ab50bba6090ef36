package scripted

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OpKind is the kind of a script operation.
type OpKind int

// The script operations.
const (
	OpRead OpKind = iota
	OpWrite
	OpIdle
)

// An Op is one step of a bus master script.
type Op struct {
	Kind    OpKind
	Address uint32
	Sel     uint8
	Data    uint32

	// Check is set when a read carries an expected value in Data.
	Check bool

	// Cycles is the number of bus cycles an idle op waits.
	Cycles uint32
}

// Read returns an op that reads addr.
func Read(addr uint32) Op {
	return Op{Kind: OpRead, Address: addr}
}

// ReadExpect returns an op that reads addr and checks the result.
func ReadExpect(addr, want uint32) Op {
	return Op{Kind: OpRead, Address: addr, Data: want, Check: true}
}

// Write returns an op that writes data to the lanes of addr selected by sel.
func Write(addr uint32, sel uint8, data uint32) Op {
	return Op{Kind: OpWrite, Address: addr, Sel: sel, Data: data}
}

// Idle returns an op that keeps the bus quiet for n cycles.
func Idle(n uint32) Op {
	return Op{Kind: OpIdle, Cycles: n}
}

// ParseScript reads one op per line. Numbers are hexadecimal.
//
//	R <adr> [<expected>]
//	W <adr> <sel> <data>
//	I <cycles>
//
// Blank lines and text after '#' are ignored.
func ParseScript(r io.Reader) ([]Op, error) {
	var ops []Op

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line, _, _ := strings.Cut(scanner.Text(), "#")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		op, err := parseOp(fields)
		if err != nil {
			return nil, fmt.Errorf("script line %d: %w", lineNo, err)
		}

		ops = append(ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	return ops, nil
}

func parseOp(fields []string) (Op, error) {
	args, err := parseHexArgs(fields[1:])
	if err != nil {
		return Op{}, err
	}

	switch strings.ToUpper(fields[0]) {
	case "R":
		switch len(args) {
		case 1:
			return Read(args[0]), nil
		case 2:
			return ReadExpect(args[0], args[1]), nil
		}
	case "W":
		if len(args) == 3 {
			if args[1] > 0xF {
				return Op{}, fmt.Errorf("select %X wider than 4 lanes", args[1])
			}

			return Write(args[0], uint8(args[1]), args[2]), nil
		}
	case "I":
		if len(args) == 1 {
			return Idle(args[0]), nil
		}
	default:
		return Op{}, fmt.Errorf("unknown op %q", fields[0])
	}

	return Op{}, fmt.Errorf("wrong number of arguments for %q", fields[0])
}

func parseHexArgs(fields []string) ([]uint32, error) {
	args := make([]uint32, 0, len(fields))

	for _, f := range fields {
		f = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")

		v, err := strconv.ParseUint(f, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}

		args = append(args, uint32(v))
	}

	return args, nil
}
