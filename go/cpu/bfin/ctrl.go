package bfin

func (m *Machine) execPushPopReg(iw0, _ uint16, _ uint32) error {
	W := iw0>>6&1 != 0
	grp := int(iw0>>3) & 7
	reg := int(iw0 & 7)
	sp := m.Regs.R[REG_SP]

	if regIsReserved(grp, reg) {
		return m.errIllegalOrCombination()
	}
	if !W {
		// Dregs and Pregs have their own pop
		if grp == 0 || grp == 1 {
			return m.errIllegalOrCombination()
		}
		if grp == 7 && reg == 0 && !m.CEC.IsSupervisor() {
			return errCombination()
		}
		val, err := m.load(sp, 4)
		if err != nil {
			return err
		}
		if err := m.regWrite(grp, reg, val); err != nil {
			return err
		}
		if grp == 7 && reg == 3 {
			m.CEC.PopRETI()
		}
		sp += 4
	} else {
		sp -= 4
		val, err := m.regRead(grp, reg)
		if err != nil {
			return err
		}
		if grp == 7 && reg == 3 {
			m.CEC.PushRETI()
		}
		if err := m.store(sp, 4, val); err != nil {
			return err
		}
	}
	// SP moves last so a faulting access can be restarted
	m.wb(REG_SP, sp)
	return nil
}

func (m *Machine) execPushPopMultiple(iw0, _ uint16, _ uint32) error {
	d := iw0>>8&1 != 0
	p := iw0>>7&1 != 0
	W := iw0>>6&1 != 0
	dr := int(iw0>>3) & 7
	pr := int(iw0 & 7)
	sp := m.Regs.R[REG_SP]

	if (!d && !p) || (p && pr > 5) || (d && !p && pr != 0) || (p && !d && dr != 0) {
		return errIllegal()
	}
	if W {
		if d {
			for i := dr; i < 8; i++ {
				sp -= 4
				if err := m.store(sp, 4, m.Regs.D(i)); err != nil {
					return err
				}
			}
		}
		if p {
			for i := pr; i < 6; i++ {
				sp -= 4
				if err := m.store(sp, 4, m.Regs.P(i)); err != nil {
					return err
				}
			}
		}
		m.cycleDelay = 14
	} else {
		if p {
			for i := 5; i >= pr; i-- {
				val, err := m.load(sp, 4)
				if err != nil {
					return err
				}
				m.setP(i, val)
				sp += 4
			}
		}
		if d {
			for i := 7; i >= dr; i-- {
				val, err := m.load(sp, 4)
				if err != nil {
					return err
				}
				m.setD(i, val)
				sp += 4
			}
		}
		m.cycleDelay = 11
	}
	m.wb(REG_SP, sp)
	return nil
}

func (m *Machine) execCCMV(iw0, _ uint16, _ uint32) error {
	T := iw0>>8&1 != 0
	d := int(iw0>>7) & 1
	s := int(iw0>>6) & 1
	dst := int(iw0>>3) & 7
	src := int(iw0 & 7)

	if m.cc() != T {
		return nil
	}
	val, err := m.regRead(s, src)
	if err != nil {
		return err
	}
	return m.regWrite(d, dst, val)
}

func (m *Machine) execCCflag(iw0, _ uint16, _ uint32) error {
	x := int(iw0 & 7)
	y := int(iw0>>3) & 7
	G := iw0>>6&1 != 0
	opc := int(iw0>>7) & 7
	I := iw0>>10&1 != 0

	if opc > 4 {
		acc0 := int64(m.Regs.ExtendedAcc(0))
		acc1 := int64(m.Regs.ExtendedAcc(1))
		diff := acc0 - acc1
		if x != 0 || y != 0 || I || G {
			return m.errIllegalOrCombination()
		}
		switch opc {
		case 5:
			m.setCC(acc0 == acc1)
		case 6:
			m.setCC(acc0 < acc1)
		case 7:
			m.setCC(acc0 <= acc1)
		}
		m.setFlag(ASTAT_AZ, diff == 0)
		m.setFlag(ASTAT_AN, diff < 0)
		const mask40 = 0xffffffffff
		m.setFlag(ASTAT_AC0, uint64(acc1)&mask40 <= uint64(acc0)&mask40)
		return nil
	}

	signed := opc < 3
	var srcop, dstop uint32
	if G {
		srcop = m.Regs.P(x)
	} else {
		srcop = m.Regs.D(x)
	}
	switch {
	case I && signed:
		dstop = imm3(uint32(y))
	case I:
		dstop = uimm3(uint32(y))
	case G:
		dstop = m.Regs.P(y)
	default:
		dstop = m.Regs.D(y)
	}
	flgs := srcop >> 31
	flgo := dstop >> 31
	result := srcop - dstop
	flgn := result >> 31
	overflow := (flgs^flgo)&(flgn^flgs) != 0
	az := result == 0
	ac0 := dstop <= srcop
	var an bool
	if signed {
		an = (flgn != 0) != overflow
	} else {
		an = dstop > srcop
	}

	var cc bool
	switch opc {
	case 0:
		cc = az
	case 1:
		cc = an
	case 2:
		cc = an || az
	case 3:
		cc = !ac0
	case 4:
		cc = !ac0 || az
	}
	m.setCC(cc)
	// pointer compares only touch CC
	if !G {
		m.setFlag(ASTAT_AZ, az)
		m.setFlag(ASTAT_AN, an)
		m.setFlag(ASTAT_AC0, ac0)
	}
	return nil
}

func (m *Machine) execCC2dreg(iw0, _ uint16, _ uint32) error {
	op := int(iw0>>3) & 3
	reg := int(iw0 & 7)
	switch {
	case op == 0:
		m.setD(reg, b2u(m.cc()))
	case op == 1:
		m.setCC(m.Regs.D(reg) != 0)
	case op == 3 && reg == 0:
		m.setCC(!m.cc())
	default:
		return m.errIllegalOrCombination()
	}
	return nil
}

func (m *Machine) execCC2stat(iw0, _ uint16, _ uint32) error {
	D := iw0>>7&1 != 0
	op := int(iw0>>5) & 3
	cbit := uint(iw0 & 0x1f)

	// CC = CC is not encodable
	if cbit == ASTAT_CC {
		return errIllegal()
	}
	pval := m.astat>>cbit&1 != 0
	cc := m.cc()
	if !D {
		switch op {
		case 0:
			cc = pval
		case 1:
			cc = cc || pval
		case 2:
			cc = cc && pval
		case 3:
			cc = cc != pval
		}
		m.setCC(cc)
		return nil
	}
	switch op {
	case 0:
		pval = cc
	case 1:
		pval = pval || cc
	case 2:
		pval = pval && cc
	case 3:
		pval = pval != cc
	}
	m.setASTAT(m.astat&^(1<<cbit) | b2u(pval)<<cbit)
	return nil
}

func (m *Machine) execBRCC(iw0, _ uint16, pc uint32) error {
	T := iw0>>11&1 != 0
	B := iw0>>10&1 != 0
	offset := uint32(iw0 & 0x3ff)

	if m.cc() == T {
		m.jump(pc + pcrel10(offset))
		m.cycleDelay = pick64(B, 5, 9)
	} else {
		m.cycleDelay = pick64(B, 9, 1)
	}
	return nil
}

func pick64(c bool, a, b uint64) uint64 {
	if c {
		return a
	}
	return b
}

func (m *Machine) execUJUMP(iw0, _ uint16, pc uint32) error {
	m.jump(pc + pcrel12(uint32(iw0&0xfff)))
	m.cycleDelay = 5
	return nil
}

func validMove(gd, dst, gs, src int) bool {
	if regIsReserved(gs, src) || regIsReserved(gd, dst) {
		return false
	}
	switch {
	case gs < 2 || gd < 2:
		// Dregs and Pregs move anywhere
	case gs == 4 && src < 4:
		// accumulators out
	case gd == 4 && dst < 4 && gs < 4:
	case gs == 7 && src == 7 && !(gd == 4 && dst < 4):
		// EMUDAT
	case gd == 7 && dst == 7:
	case gs < 4 && gd < 4:
		// DAG registers among themselves
	case gs == 7 && src == 0 && gd >= 4:
		// USP into system registers
	case gd == 7 && dst == 0 && gs == 4 && src < 4:
	default:
		return false
	}
	return true
}

func (m *Machine) execREGMV(iw0, _ uint16, _ uint32) error {
	gd := int(iw0>>9) & 7
	gs := int(iw0>>6) & 7
	dst := int(iw0>>3) & 7
	src := int(iw0 & 7)

	if !validMove(gd, dst, gs, src) {
		return errIllegal()
	}
	val, err := m.regRead(gs, src)
	if err != nil {
		return err
	}
	return m.regWrite(gd, dst, val)
}
