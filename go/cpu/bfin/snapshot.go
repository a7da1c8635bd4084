package bfin

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/cpu/bfin/mmu"
	"github.com/lunixbochs/bfincorn/go/models"
)

// Register numbers past the register file carry machine counters.
const (
	snapInsCountLo = 0x1000 + iota
	snapInsCountHi
)

// stateWords lists the event controller and MMU state by MMR address.
func (m *Machine) stateWords() map[uint32]*uint32 {
	c, u := m.CEC, m.MMU
	w := map[uint32]*uint32{
		cec.CECBase + cec.EVT_OVERRIDE:       &c.EVTOverride,
		cec.CECBase + cec.MMR_IMASK:          (*uint32)(&c.IMASK),
		cec.CECBase + cec.MMR_IPEND:          (*uint32)(&c.IPEND),
		cec.CECBase + cec.MMR_ILAT:           (*uint32)(&c.ILAT),
		cec.CECBase + cec.MMR_IPRIO:          &c.IPRIO,
		mmu.DMemBase + mmu.SRAM_BASE_ADDRESS: &u.SRAMBase,
	}
	for i := range c.EVT {
		w[cec.EVTBase+uint32(i)*4] = &c.EVT[i]
	}
	for _, side := range []struct {
		base uint32
		s    *mmu.Space
	}{{mmu.DMemBase, &u.D}, {mmu.IMemBase, &u.I}} {
		s := side.s
		w[side.base+mmu.MEM_CONTROL] = &s.Control
		w[side.base+mmu.CPLB_FAULT_STATUS] = &s.Fault.Status
		w[side.base+mmu.CPLB_FAULT_ADDR] = &s.Fault.Addr
		w[side.base+mmu.TEST_COMMAND] = &s.TestCommand
		w[side.base+mmu.TEST_DATA0] = &s.TestData[0]
		w[side.base+mmu.TEST_DATA0+4] = &s.TestData[1]
		for i := range s.CPLB {
			w[side.base+mmu.CPLB_ADDR0+uint32(i)*4] = &s.CPLB[i].Addr
			w[side.base+mmu.CPLB_DATA0+uint32(i)*4] = &s.CPLB[i].Data
		}
	}
	return w
}

// Snapshot captures the register file, event controller, MMU and all
// backing memory.
func (m *Machine) Snapshot() *models.Snapshot {
	m.gate.Lock()
	defer m.gate.Unlock()

	snap := &models.Snapshot{Arch: Arch}
	for i, v := range m.Regs.R {
		snap.Regs = append(snap.Regs, models.SnapshotWord{Key: uint32(i), Val: v})
	}
	snap.Regs = append(snap.Regs,
		models.SnapshotWord{Key: snapInsCountLo, Val: uint32(m.InsCount)},
		models.SnapshotWord{Key: snapInsCountHi, Val: uint32(m.InsCount >> 32)},
	)
	for addr, p := range m.stateWords() {
		snap.MMRs = append(snap.MMRs, models.SnapshotWord{Key: addr, Val: *p})
	}
	sort.Slice(snap.MMRs, func(i, j int) bool { return snap.MMRs[i].Key < snap.MMRs[j].Key })
	for _, r := range m.Mem.Regions() {
		data := make([]byte, len(r.Data))
		copy(data, r.Data)
		snap.Regions = append(snap.Regions, models.SnapshotRegion{
			Addr: r.Addr, Prot: uint32(r.Prot), Name: r.Name, Data: data,
		})
	}
	return snap
}

// Restore replaces the machine state with snap. Regions must match the
// machine's memory layout.
func (m *Machine) Restore(snap *models.Snapshot) error {
	m.gate.Lock()
	defer m.gate.Unlock()

	if snap.Arch != Arch {
		return errors.Errorf("savestate is for %q, not %q", snap.Arch, Arch)
	}
	for _, r := range snap.Regions {
		if mapped, _ := m.Mem.Mapped(r.Addr, len(r.Data), 0); !mapped {
			return errors.Errorf("savestate region %s at 0x%08x is not mapped", r.Name, r.Addr)
		}
	}
	var regs RegFile
	var ins uint64
	for _, w := range snap.Regs {
		switch {
		case w.Key < NumRegs:
			regs.R[w.Key] = w.Val
		case w.Key == snapInsCountLo:
			ins |= uint64(w.Val)
		case w.Key == snapInsCountHi:
			ins |= uint64(w.Val) << 32
		default:
			return errors.Errorf("savestate register %#x out of range", w.Key)
		}
	}
	words := m.stateWords()
	for _, w := range snap.MMRs {
		if _, ok := words[w.Key]; !ok {
			return errors.Errorf("savestate MMR 0x%08x unknown", w.Key)
		}
	}
	for _, w := range snap.MMRs {
		*words[w.Key] = w.Val
	}
	for _, r := range snap.Regions {
		if err := m.Mem.Write(r.Addr, r.Data); err != nil {
			return errors.Wrapf(err, "restoring region %s", r.Name)
		}
	}
	m.Regs = regs
	m.InsCount = ins
	m.wbq.reset()
	m.CEC.Recheck()
	m.log.WithField("pc", fmt.Sprintf("0x%08x", m.Regs.R[REG_PC])).Debug("state restored")
	return nil
}
