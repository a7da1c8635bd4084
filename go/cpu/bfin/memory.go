package bfin

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/cpu/bfin/mmu"
	"github.com/lunixbochs/bfincorn/go/devices"
	"github.com/lunixbochs/bfincorn/go/models/mem"
	"github.com/lunixbochs/bfincorn/go/models/trace"
)

func errIllegal() error     { return &cec.Except{Cause: cec.VEC_UNDEF_I} }
func errCombination() error { return &cec.Except{Cause: cec.VEC_ILGAL_I} }

func (m *Machine) errIllegalOrCombination() error {
	if m.group != groupNone {
		return errCombination()
	}
	return errIllegal()
}

// single requires the instruction to be issued on its own.
func (m *Machine) single() error {
	if m.group != groupNone {
		return errCombination()
	}
	return nil
}

func (m *Machine) requireSupervisor() error {
	if !m.CEC.IsSupervisor() {
		return &cec.Except{Cause: cec.VEC_ILL_RES}
	}
	return nil
}

func mmuAccess(m *Machine, addr uint32, write, inst bool) mmu.Access {
	return mmu.Access{
		Addr:  addr,
		Write: write,
		Inst:  inst,
		Supv:  m.CEC.IsSupervisor(),
		DAG1:  m.group == group2,
		PC:    m.Regs.R[REG_PC],
	}
}

// check runs an access past the MMU. CPLB faults become exceptions, accesses
// the MMU routes to the hardware error path queue IVHW and continue.
func (m *Machine) check(addr uint32, size int, write, inst bool) error {
	a := mmuAccess(m, addr, write, inst)
	a.Size = size
	return m.fault(m.MMU.CheckAddress(a))
}

func (m *Machine) fault(f mmu.Fault) error {
	switch f.Kind {
	case mmu.None:
		return nil
	case mmu.HwErrMiss:
		m.hwErr(cec.HWERR_EXTERN_ADDR)
		return nil
	}
	return &cec.Except{Cause: f.Excause}
}

func (m *Machine) memFields(addr uint32, size int) logrus.Fields {
	return logrus.Fields{"pc": fmt.Sprintf("0x%08x", m.Regs.R[REG_PC]), "addr": fmt.Sprintf("0x%08x", addr), "size": size}
}

// rawRead reads without an MMU check. Device errors and unbacked memory are
// reported through the event controller.
func (m *Machine) rawRead(addr uint32, size int, inst bool) (uint32, error) {
	if addr >= devices.SystemMMRBase {
		val, err := m.Bus.Read(addr, size)
		if err != nil {
			if errors.Cause(err) != devices.ErrInvalidMMR {
				return 0, err
			}
			m.log.WithFields(m.memFields(addr, size)).Debug(err)
			m.hwErr(cec.HWERR_SYSTEM_MMR)
			return 0, nil
		}
		return val, nil
	}
	prot := mem.PROT_READ
	if inst {
		prot = mem.PROT_EXEC
	}
	val, err := m.Mem.ReadUint(addr, size, prot)
	if err != nil {
		if _, ok := errors.Cause(err).(*mem.MemError); !ok {
			return 0, err
		}
		m.log.WithFields(m.memFields(addr, size)).Debug(err)
		if m.cfg.OSMode {
			m.hwErr(cec.HWERR_EXTERN_ADDR)
			return 0, nil
		}
		if inst {
			return 0, &cec.Except{Cause: cec.VEC_CPLB_I_M}
		}
		return 0, &cec.Except{Cause: cec.VEC_CPLB_M}
	}
	return val, nil
}

func (m *Machine) rawWrite(addr uint32, size int, val uint32) error {
	if m.hooks.HasMem() {
		m.hooks.OnMem(mem.MEM_WRITE, addr, size, val)
	}
	if m.trace != nil && m.cfg.Trace.Mem {
		m.tracePack(&trace.Record{Kind: trace.REC_WRITE, PC: m.Regs.R[REG_PC], A: addr, B: val, Len: uint8(size)})
	}
	if addr >= devices.SystemMMRBase {
		if err := m.Bus.Write(addr, size, val); err != nil {
			if errors.Cause(err) != devices.ErrInvalidMMR {
				return err
			}
			m.log.WithFields(m.memFields(addr, size)).Debug(err)
			m.CEC.HwErr(cec.HWERR_SYSTEM_MMR)
		}
		return nil
	}
	return m.Mem.WriteUint(addr, size, val)
}

// ifetch reads one instruction halfword.
func (m *Machine) ifetch(addr uint32) (uint16, error) {
	if err := m.check(addr, 2, false, true); err != nil {
		return 0, err
	}
	v, err := m.rawRead(addr, 2, true)
	if err != nil {
		return 0, err
	}
	if m.nwords < len(m.words) {
		m.words[m.nwords] = uint16(v)
		m.nwords++
	}
	return uint16(v), nil
}

// ifetchCheck validates a branch target before the branch is taken.
func (m *Machine) ifetchCheck(addr uint32) error {
	return m.check(addr, 2, false, true)
}

// load reads size bytes through the MMU, zero extended.
func (m *Machine) load(addr uint32, size int) (uint32, error) {
	if err := m.check(addr, size, false, false); err != nil {
		return 0, err
	}
	val, err := m.rawRead(addr, size, false)
	if err != nil {
		return 0, err
	}
	if m.hooks.HasMem() {
		m.hooks.OnMem(mem.MEM_READ, addr, size, val)
	}
	if m.trace != nil && m.cfg.Trace.Mem {
		m.tracePack(&trace.Record{Kind: trace.REC_READ, PC: m.Regs.R[REG_PC], A: addr, B: val, Len: uint8(size)})
	}
	return val, nil
}

func (m *Machine) loadSigned(addr uint32, size int) (uint32, error) {
	val, err := m.load(addr, size)
	return signExtend(val, uint(size*8)), err
}

// store checks the access now and queues the write for commit.
func (m *Machine) store(addr uint32, size int, val uint32) error {
	if err := m.check(addr, size, true, false); err != nil {
		return err
	}
	if addr < devices.SystemMMRBase {
		if mapped, ok := m.Mem.Mapped(addr, size, mem.PROT_WRITE); !mapped || !ok {
			m.log.WithFields(m.memFields(addr, size)).Debug("store to unbacked memory")
			if m.cfg.OSMode {
				m.hwErr(cec.HWERR_EXTERN_ADDR)
				return nil
			}
			return &cec.Except{Cause: cec.VEC_CPLB_M}
		}
	}
	m.wbq.mems = append(m.wbq.mems, wbMem{addr, size, val})
	return nil
}
