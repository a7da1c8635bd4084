package bfin

// regIndex resolves a grp/reg operand, enforcing the reserved slots and
// the supervisor-only group.
func (m *Machine) regIndex(grp, reg int) (int, error) {
	if regIsReserved(grp, reg) {
		return -1, errIllegal()
	}
	idx := allregs[grp<<3|reg]
	if idx < 0 {
		return -1, errIllegal()
	}
	if grp == 7 {
		if err := m.requireSupervisor(); err != nil {
			return -1, err
		}
	}
	return idx, nil
}

func (m *Machine) regRead(grp, reg int) (uint32, error) {
	if grp == 4 && reg == 6 {
		return m.astat, nil
	}
	idx, err := m.regIndex(grp, reg)
	if err != nil {
		return 0, err
	}
	val := m.Regs.R[idx]
	switch idx {
	case REG_CYCLES:
		m.Regs.R[REG_CYCLES2] = m.Regs.R[REG_CYCLES2SHD]
	case REG_A0X, REG_A1X:
		if val&0x80 != 0 {
			val |= 0xffffff00
		}
	}
	return val, nil
}

func (m *Machine) regWrite(grp, reg int, val uint32) error {
	if grp == 4 && reg == 6 {
		m.setASTAT(val)
		return nil
	}
	idx, err := m.regIndex(grp, reg)
	if err != nil {
		return err
	}
	switch idx {
	case REG_CYCLES2:
		idx = REG_CYCLES2SHD
	case REG_SEQSTAT:
		return nil
	case REG_EMUDAT:
		idx = REG_EMUDAT_OUT
	case REG_LT0, REG_LT1:
		val &^= 1
	case REG_A0X, REG_A1X:
		val &= 0xff
	}
	m.wb(idx, val)
	return nil
}
