package cec

import (
	"fmt"
	"math/bits"
	"strings"
)

// IVG is an event priority level. Lower values preempt higher ones.
type IVG int

const (
	EMU IVG = iota
	RST
	NMI
	EVX
	IRPTEN
	IVHW
	IVTMR
	IVG7
	IVG8
	IVG9
	IVG10
	IVG11
	IVG12
	IVG13
	IVG14
	IVG15
	USER
)

// Current requests a return from (or check of) the active level.
const Current IVG = -1

var ivgNames = []string{"EMU", "RST", "NMI", "EVX", "IRPTEN", "IVHW", "IVTMR"}

func (i IVG) String() string {
	switch {
	case i == Current:
		return "current"
	case i == USER:
		return "USER"
	case i >= 0 && int(i) < len(ivgNames):
		return ivgNames[i]
	case i > IVTMR && i <= IVG15:
		return fmt.Sprintf("IVG%d", int(i))
	}
	return fmt.Sprintf("IVG(%d)", int(i))
}

func (i IVG) bit() Levels { return 1 << uint(i) }

const (
	// EMU, RST, NMI, EVX and IRPTEN can not be masked.
	Unmaskable Levels = 0x1f
	Maskable   Levels = 0xffe0
	// ILAT bits software may clear
	ilatW1C Levels = 0xffee
)

// Levels is one of the IMASK/ILAT/IPEND bitsets.
type Levels uint32

func (l Levels) Has(i IVG) bool       { return l&i.bit() != 0 }
func (l *Levels) Set(i IVG)           { *l |= i.bit() }
func (l *Levels) Clear(i IVG)         { *l &^= i.bit() }
func (l Levels) Without(i IVG) Levels { return l &^ i.bit() }

// Highest returns the highest priority level set, or USER if none are.
func (l Levels) Highest() IVG {
	l &= 0xffff
	if l == 0 {
		return USER
	}
	return IVG(bits.TrailingZeros32(uint32(l)))
}

func (l Levels) String() string {
	var names []string
	for i := EMU; i <= IVG15; i++ {
		if l.Has(i) {
			names = append(names, i.String())
		}
	}
	return fmt.Sprintf("%#04x [%s]", uint32(l), strings.Join(names, " "))
}
