package models

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

var breakRe = regexp.MustCompile(`^(?:(\*?0x[0-9a-fA-F]+|\d+)|([A-Za-z_.$][\w.$]*?)(\+0x[0-9a-fA-F]+|\+\d+)?)$`)

// Breakpoint is an execution breakpoint resolved to an address.
type Breakpoint struct {
	Addr uint32
	Sym  string
	Off  uint32
}

var BreakpointParseErr = fmt.Errorf("breakpoint parse failed")

// NewBreakpoint parses desc (0xADDR, sym or sym+0xOFF) and resolves symbols
// against syms.
func NewBreakpoint(desc string, syms SymbolTable) (*Breakpoint, error) {
	r := breakRe.FindStringSubmatch(desc)
	if len(r) == 0 {
		return nil, errors.WithStack(BreakpointParseErr)
	}
	addrG, sym, offG := r[1], r[2], r[3]
	b := &Breakpoint{Sym: sym}
	if addrG != "" {
		if addrG[0] == '*' {
			addrG = addrG[1:]
		}
		addr, err := strconv.ParseUint(addrG, 0, 32)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse int")
		}
		b.Addr = uint32(addr)
		return b, nil
	}
	if offG != "" {
		off, err := strconv.ParseUint(offG[1:], 0, 32)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse int")
		}
		b.Off = uint32(off)
	}
	s, ok := syms.Find(sym)
	if !ok {
		return nil, errors.Errorf("symbol %q not found", sym)
	}
	b.Addr = s.Start + b.Off
	return b, nil
}

func (b *Breakpoint) String() string {
	if b.Sym == "" {
		return fmt.Sprintf("0x%08x", b.Addr)
	}
	if b.Off != 0 {
		return fmt.Sprintf("%s+%#x (0x%08x)", b.Sym, b.Off, b.Addr)
	}
	return fmt.Sprintf("%s (0x%08x)", b.Sym, b.Addr)
}
