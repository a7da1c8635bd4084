package bfin

// wbQueue collects the side effects of one instruction or parallel group.
// Nothing reaches the register file, memory or the event controller until
// commit, so a fault in any slot leaves the machine exactly as it was before
// the group.
type wbQueue struct {
	regs   []wbReg
	mems   []wbMem
	hwerrs []int
}

type wbReg struct {
	idx int
	val uint32
}

type wbMem struct {
	addr uint32
	size int
	val  uint32
}

func (q *wbQueue) reset() {
	q.regs = q.regs[:0]
	q.mems = q.mems[:0]
	q.hwerrs = q.hwerrs[:0]
}

// wb queues a register write by register file index.
func (m *Machine) wb(idx int, val uint32) {
	if m.log != nil && m.cfg.Trace.Reg {
		m.log.Debugf("queuing write %s = %#x", regName(idx), val)
	}
	m.wbq.regs = append(m.wbq.regs, wbReg{idx, val})
}

// hwErr queues a hardware error. It latches IVHW at commit.
func (m *Machine) hwErr(cause int) {
	m.wbq.hwerrs = append(m.wbq.hwerrs, cause)
}

func (m *Machine) setD(n int, v uint32) { m.wb(REG_R0+n, v) }
func (m *Machine) setP(n int, v uint32) { m.wb(REG_P0+n, v) }
func (m *Machine) setI(n int, v uint32) { m.wb(REG_I0+n, v) }

func (m *Machine) setCC(v bool) { m.setFlag(ASTAT_CC, v) }
func (m *Machine) cc() bool     { return m.flag(ASTAT_CC) }

// commit applies the queue in issue order. Register writes land first so a
// store to a device register sees the group's register results.
func (m *Machine) commit() error {
	for _, w := range m.wbq.regs {
		m.Regs.R[w.idx] = w.val
	}
	m.Regs.R[REG_ASTAT] = m.astat
	for _, cause := range m.wbq.hwerrs {
		m.CEC.HwErr(cause)
	}
	for _, w := range m.wbq.mems {
		if err := m.rawWrite(w.addr, w.size, w.val); err != nil {
			m.wbq.reset()
			return err
		}
	}
	m.wbq.reset()
	return nil
}
