package bfin

import (
	"github.com/lunixbochs/bfincorn/go/models"
)

// atomicScanBudget bounds the walk from CLI looking for its STI.
const atomicScanBudget = 16

func isCLI(iw0 uint16) bool { return iw0&0xfff8 == 0x0030 }
func isSTI(iw0 uint16) bool { return iw0&0xfff8 == 0x0040 }

func (m *Machine) peekWords(pc uint32) (uint16, uint16, bool) {
	iw0, err := m.Mem.ReadUint(pc, 2, 0)
	if err != nil {
		return 0, 0, false
	}
	iw1, err := m.Mem.ReadUint(pc+2, 2, 0)
	if err != nil {
		iw1 = 0
	}
	return uint16(iw0), uint16(iw1), true
}

// flowTargets returns where the instruction at pc can continue, ignoring
// events. The fallthrough address comes first when there is one.
func (m *Machine) flowTargets(pc uint32) []uint32 {
	iw0, iw1, ok := m.peekWords(pc)
	if !ok {
		return []uint32{pc}
	}
	n := uint32(InsnLen(iw0))
	next := m.hwloopNextPC(pc, n)

	switch {
	case iw0&0xff00 == 0x0000:
		p := int(iw0 & 7)
		switch iw0 & 0xfff8 {
		case 0x0010:
			switch iw0 & 0xf {
			case 0:
				return []uint32{m.Regs.R[REG_RETS]}
			case 1:
				return []uint32{m.Regs.R[REG_RETI] &^ 1}
			case 2:
				return []uint32{m.Regs.R[REG_RETX]}
			case 3:
				return []uint32{m.Regs.R[REG_RETN]}
			case 4:
				return []uint32{m.Regs.R[REG_RETE]}
			}
		case 0x0050, 0x0060:
			return []uint32{m.Regs.P(p)}
		case 0x0070, 0x0080:
			return []uint32{pc + m.Regs.P(p)}
		}
	case iw0&0xf000 == 0x1000:
		return []uint32{next, pc + pcrel10(uint32(iw0&0x3ff))}
	case iw0&0xf000 == 0x2000:
		return []uint32{pc + pcrel12(uint32(iw0&0xfff))}
	case iw0&0xfe00 == 0xe200:
		return []uint32{pc + pcrel24(uint32(iw0&0xff)<<16|uint32(iw1))}
	}
	return []uint32{next}
}

// NextPCs returns the addresses a debugger should stop at to step the
// instruction at pc. A CLI opening an interrupt-disabled region is stepped
// together with everything up to its matching STI.
func (m *Machine) NextPCs(pc uint32) []uint32 {
	if out, ok := m.atomicTargets(pc); ok {
		return out
	}
	return m.flowTargets(pc)
}

// atomicTargets scans from a CLI at pc for its STI. ok is false when pc
// does not open a region or no STI is found within the budget.
func (m *Machine) atomicTargets(pc uint32) ([]uint32, bool) {
	iw0, _, ok := m.peekWords(pc)
	if !ok || !isCLI(iw0) {
		return nil, false
	}
	var branches []uint32
	addr := pc
	for i := 0; i < atomicScanBudget; i++ {
		w, _, ok := m.peekWords(addr)
		if !ok {
			break
		}
		if isSTI(w) {
			end := addr + 2
			out := []uint32{end}
			for _, t := range branches {
				if t < pc || t >= end {
					out = appendUnique(out, t)
				}
			}
			return out, true
		}
		// forward conditional branches may leave the region early
		if w&0xf000 == 0x1000 {
			if t := addr + pcrel10(uint32(w&0x3ff)); t > addr {
				branches = append(branches, t)
			}
		}
		addr += uint32(InsnLen(w))
	}
	return nil, false
}

func appendUnique(s []uint32, v uint32) []uint32 {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// SingleStep executes until the core reaches one of NextPCs, an event is
// vectored, or the machine halts.
func (m *Machine) SingleStep() (*models.Halt, error) {
	m.gate.Lock()
	defer m.gate.Unlock()

	targets, atomic := m.atomicTargets(m.Regs.R[REG_PC])
	stops := make(map[uint32]bool, len(targets))
	for _, t := range targets {
		stops[t] = true
	}
	for i := 0; i <= atomicScanBudget; i++ {
		ipend := m.CEC.IPEND
		halt, err := m.Step()
		if err != nil || halt != nil {
			return halt, err
		}
		if !atomic || stops[m.Regs.R[REG_PC]] || m.CEC.IPEND != ipend {
			break
		}
	}
	return nil, nil
}
