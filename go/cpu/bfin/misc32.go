package bfin

func (m *Machine) execLoopSetup(iw0, iw1 uint16, pc uint32) error {
	rop := int(iw0>>5) & 3
	c := int(iw0>>4) & 1
	soffset := uint32(iw0 & 0xf)
	reg := int(iw1>>12) & 0xf
	eoffset := uint32(iw1 & 0x3ff)

	if reg > 7 {
		return errIllegal()
	}
	switch rop {
	case 0:
	case 1:
		m.wb(REG_LC0+c*3, m.Regs.P(reg))
	case 3:
		m.wb(REG_LC0+c*3, m.Regs.P(reg)>>1)
	default:
		return errIllegal()
	}
	m.wb(REG_LT0+c*3, (pc+pcrel4(soffset))&^1)
	m.wb(REG_LB0+c*3, pc+lppcrel10(eoffset))
	return nil
}

func (m *Machine) execLDIMMhalf(iw0, iw1 uint16, _ uint32) error {
	Z := iw0>>7&1 != 0
	H := iw0>>6&1 != 0
	S := iw0>>5&1 != 0
	grp := int(iw0>>3) & 3
	reg := int(iw0 & 7)
	hword := uint32(iw1)

	var val uint32
	switch {
	case !H && S && !Z:
		val = imm16(hword)
	case !H && !S && Z:
		val = luimm16(hword)
	case !H && !S && !Z, H && !S && !Z:
		old, err := m.regRead(grp, reg)
		if err != nil {
			return err
		}
		if H {
			val = hl(hword<<16, old)
		} else {
			val = hl(old, hword)
		}
	default:
		return errIllegal()
	}
	return m.regWrite(grp, reg, val)
}

func (m *Machine) execCALLa(iw0, iw1 uint16, pc uint32) error {
	S := iw0>>8&1 != 0
	target := pc + pcrel24(uint32(iw0&0xff)<<16|uint32(iw1))

	if S {
		m.wb(REG_RETS, m.hwloopNextPC(pc, 4))
	}
	m.jump(target)
	m.cycleDelay = 5
	return nil
}

// execLinkage handles LINK and UNLINK.
func (m *Machine) execLinkage(iw0, iw1 uint16, _ uint32) error {
	R := iw0&1 != 0
	var sp uint32

	if !R {
		sp = m.Regs.R[REG_SP] - 4
		if err := m.store(sp, 4, m.Regs.R[REG_RETS]); err != nil {
			return err
		}
		sp -= 4
		if err := m.store(sp, 4, m.Regs.R[REG_FP]); err != nil {
			return err
		}
		m.wb(REG_FP, sp)
		sp -= uimm16s4(uint32(iw1))
		m.cycleDelay = 3
	} else {
		sp = m.Regs.R[REG_FP]
		fp, err := m.load(sp, 4)
		if err != nil {
			return err
		}
		rets, err := m.load(sp+4, 4)
		if err != nil {
			return err
		}
		m.wb(REG_FP, fp)
		m.wb(REG_RETS, rets)
		sp += 8
		m.cycleDelay = 2
	}
	m.wb(REG_SP, sp)
	return nil
}
