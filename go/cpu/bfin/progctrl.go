package bfin

import (
	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/models"
)

// branchTo validates the target and queues the jump. Only used by
// instructions that must issue alone.
func (m *Machine) branchTo(target uint32, delay uint64) error {
	if err := m.ifetchCheck(target); err != nil {
		return err
	}
	if err := m.single(); err != nil {
		return err
	}
	m.jump(target)
	m.cycleDelay = delay
	return nil
}

func (m *Machine) execProgCtrl(iw0, _ uint16, pc uint32) error {
	poprnd := int(iw0 & 0xf)
	prgfunc := int(iw0>>4) & 0xf

	if prgfunc == 0 && poprnd == 0 {
		return nil
	}
	if err := m.single(); err != nil {
		return err
	}
	switch {
	case prgfunc == 1 && poprnd == 0:
		return m.branchTo(m.Regs.R[REG_RETS], 5)
	case prgfunc == 1 && poprnd <= 4:
		// RTI's target is not checked, its low bit is the self-nesting flag
		if poprnd == 2 {
			if err := m.ifetchCheck(m.Regs.R[REG_RETX]); err != nil {
				return err
			}
		} else if poprnd == 3 {
			if err := m.ifetchCheck(m.Regs.R[REG_RETN]); err != nil {
				return err
			}
		}
		ivg := [...]cec.IVG{1: cec.Current, 2: cec.EVX, 3: cec.NMI, 4: cec.EMU}[poprnd]
		m.cycleDelay = 5
		return m.CEC.Return(ivg)
	case prgfunc == 2 && poprnd == 0:
		return m.idle(pc)
	case prgfunc == 2 && (poprnd == 3 || poprnd == 4):
		// CSYNC/SSYNC: no pipeline to drain
		m.cycleDelay = 10
	case prgfunc == 2 && poprnd == 5:
		return &cec.Except{Cause: cec.VEC_SIM_TRAP}
	case prgfunc == 3 && poprnd < 8:
		old, err := m.CEC.Cli()
		if err != nil {
			return err
		}
		m.setD(poprnd, old)
	case prgfunc == 4 && poprnd < 8:
		if err := m.CEC.Sti(m.Regs.D(poprnd)); err != nil {
			return err
		}
		m.cycleDelay = 3
	case prgfunc == 5 && poprnd < 8:
		return m.branchTo(m.Regs.P(poprnd), 5)
	case prgfunc == 6 && poprnd < 8, prgfunc == 7 && poprnd < 8:
		target := m.Regs.P(poprnd)
		if prgfunc == 7 {
			target += pc
		}
		if err := m.branchTo(target, 5); err != nil {
			return err
		}
		// at a loop bottom RETS is the loop top
		m.wb(REG_RETS, m.hwloopNextPC(pc, 2))
	case prgfunc == 8 && poprnd < 8:
		return m.branchTo(pc+m.Regs.P(poprnd), 5)
	case prgfunc == 9:
		if err := m.requireSupervisor(); err != nil {
			return err
		}
		if cec.IVG(poprnd) == cec.IVHW {
			m.hwErr(cec.HWERR_RAISE_5)
		} else {
			m.CEC.Latch(cec.IVG(poprnd))
		}
		m.cycleDelay = 3
	case prgfunc == 10:
		m.cycleDelay = 3
		return &cec.Except{Cause: poprnd}
	case prgfunc == 11 && poprnd < 6:
		addr := m.Regs.P(poprnd)
		b, err := m.load(addr, 2)
		if err != nil {
			return err
		}
		b &= 0xff
		m.setCC(b == 0)
		if err := m.store(addr, 1, b|0x80); err != nil {
			return err
		}
		m.cycleDelay = 2
	default:
		return m.errIllegalOrCombination()
	}
	return nil
}

// idle skips ahead to the next scheduled event. With nothing scheduled the
// core could never wake, so the simulation stops after the instruction.
func (m *Machine) idle(pc uint32) error {
	next, ok := m.Sched.Next()
	if !ok {
		m.halt = models.Stopped(pc+2, models.SIGTRAP, "idle with nothing scheduled")
		return nil
	}
	if now := m.Sched.Now(); next > now {
		m.cycleDelay = next - now
	}
	return nil
}

func (m *Machine) execCaCTRL(iw0, _ uint16, _ uint32) error {
	a := iw0>>5&1 != 0
	op := int(iw0>>3) & 3
	reg := int(iw0 & 7)
	preg := m.Regs.P(reg)

	if err := m.single(); err != nil {
		return err
	}
	if err := m.cacheCheck(preg, op); err != nil {
		return err
	}
	if a {
		m.setP(reg, preg+32)
	}
	return nil
}

// cacheCheck runs a PREFETCH/FLUSHINV/FLUSH/IFLUSH line address past the MMU.
func (m *Machine) cacheCheck(addr uint32, op int) error {
	return m.fault(m.MMU.CheckCacheAddr(mmuAccess(m, addr, op == 1 || op == 2, op == 3)))
}
