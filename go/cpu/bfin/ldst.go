package bfin

// Loads write their destination through the queue like any other result, so
// a faulting access leaves every register untouched.

func (m *Machine) loadHalfInto(reg int, addr uint32, high bool) error {
	v, err := m.load(addr, 2)
	if err != nil {
		return err
	}
	d := m.Regs.D(reg)
	if high {
		m.setD(reg, d&0xffff|v<<16)
	} else {
		m.setD(reg, d&0xffff0000|v)
	}
	return nil
}

func (m *Machine) execLDSTpmod(iw0, _ uint16, _ uint32) error {
	W := iw0>>11&1 != 0
	aop := int(iw0>>9) & 3
	reg := int(iw0>>6) & 7
	idx := int(iw0>>3) & 7
	ptr := int(iw0 & 7)
	addr := m.Regs.P(ptr)

	if m.group == group2 {
		return errCombination()
	}
	// with idx == ptr the half register forms take no modify
	if idx == ptr && (aop == 1 || aop == 2) {
		if !W {
			return m.loadHalfInto(reg, addr, aop == 2)
		}
		return m.store(addr, 2, m.Regs.D(reg)>>uint(16*(aop-1)))
	}

	var err error
	switch {
	case aop == 0 && !W:
		var v uint32
		if v, err = m.load(addr, 4); err == nil {
			m.setD(reg, v)
		}
	case (aop == 1 || aop == 2) && !W:
		err = m.loadHalfInto(reg, addr, aop == 2)
	case aop == 3:
		var v uint32
		if W {
			v, err = m.loadSigned(addr, 2)
		} else {
			v, err = m.load(addr, 2)
		}
		if err == nil {
			m.setD(reg, v)
		}
	case aop == 0:
		err = m.store(addr, 4, m.Regs.D(reg))
	default:
		err = m.store(addr, 2, m.Regs.D(reg)>>uint(16*(aop-1)))
	}
	if err != nil {
		return err
	}
	if ptr != idx {
		m.setP(ptr, addr+m.Regs.P(idx))
	}
	return nil
}

func (m *Machine) execDagMODim(iw0, _ uint16, _ uint32) error {
	br := iw0>>7&1 != 0
	op := iw0>>4&1 != 0
	mr := int(iw0>>2) & 3
	i := int(iw0 & 3)

	if m.group == group2 {
		return errCombination()
	}
	M := m.Regs.M(mr)
	switch {
	case !op && br:
		m.setI(i, addBrev(m.Regs.I(i), M))
	case !op:
		m.setI(i, m.Regs.dagadd(i, int32(M)))
	case !br:
		m.setI(i, m.Regs.dagsub(i, int32(M)))
	default:
		return m.errIllegalOrCombination()
	}
	return nil
}

func (m *Machine) execDagMODik(iw0, _ uint16, _ uint32) error {
	op := int(iw0>>2) & 3
	i := int(iw0 & 3)

	if m.group == group2 {
		return errCombination()
	}
	step := int32(2)
	if op >= 2 {
		step = 4
	}
	if op&1 == 0 {
		m.setI(i, m.Regs.dagadd(i, step))
	} else {
		m.setI(i, m.Regs.dagsub(i, step))
	}
	return nil
}

func (m *Machine) execDspLDST(iw0, _ uint16, _ uint32) error {
	W := iw0>>9&1 != 0
	aop := int(iw0>>7) & 3
	mr := int(iw0>>5) & 3
	i := int(iw0>>3) & 3
	reg := int(iw0 & 7)
	addr := m.Regs.I(i)

	if aop == 3 {
		if !W && m.disAlgn {
			addr &^= 3
		}
		m.setI(i, m.Regs.dagadd(i, int32(m.Regs.M(mr))))
		if W {
			return m.store(addr, 4, m.Regs.D(reg))
		}
		v, err := m.load(addr, 4)
		if err == nil {
			m.setD(reg, v)
		}
		return err
	}
	if mr == 3 {
		return m.errIllegalOrCombination()
	}

	size := 4
	if mr != 0 {
		size = 2
	}
	if size == 4 && !W && m.disAlgn {
		addr &^= 3
	}
	switch aop {
	case 0:
		m.setI(i, m.Regs.dagadd(i, int32(size)))
	case 1:
		m.setI(i, m.Regs.dagsub(i, int32(size)))
	}

	if W {
		val := m.Regs.D(reg)
		if mr == 2 {
			val >>= 16
		}
		return m.store(addr, size, val)
	}
	if size == 2 {
		return m.loadHalfInto(reg, addr, mr == 2)
	}
	v, err := m.load(addr, 4)
	if err == nil {
		m.setD(reg, v)
	}
	return err
}

func (m *Machine) execLDST(iw0, _ uint16, _ uint32) error {
	sz := int(iw0>>10) & 3
	W := iw0>>9&1 != 0
	aop := int(iw0>>7) & 3
	Z := iw0>>6&1 != 0
	ptr := int(iw0>>3) & 7
	reg := int(iw0 & 7)
	addr := m.Regs.P(ptr)

	if aop == 3 || m.group == group2 {
		return m.errIllegalOrCombination()
	}
	if sz == 3 {
		return m.errIllegalOrCombination()
	}
	if !W {
		var v uint32
		var err error
		switch {
		case sz == 0:
			if Z && aop < 2 && ptr == reg {
				return errCombination()
			}
			v, err = m.load(addr, 4)
		case Z:
			v, err = m.loadSigned(addr, 4>>uint(sz))
		default:
			v, err = m.load(addr, 4>>uint(sz))
		}
		if err != nil {
			return err
		}
		if sz == 0 && Z {
			m.setP(reg, v)
		} else {
			m.setD(reg, v)
		}
	} else {
		var val uint32
		switch {
		case sz == 0 && Z:
			val = m.Regs.P(reg)
		case Z:
			return m.errIllegalOrCombination()
		default:
			val = m.Regs.D(reg)
		}
		if err := m.store(addr, 4>>uint(sz), val); err != nil {
			return err
		}
	}
	switch aop {
	case 0:
		m.setP(ptr, addr+1<<uint(2-sz))
	case 1:
		m.setP(ptr, addr-1<<uint(2-sz))
	}
	return nil
}

func (m *Machine) execLDSTiiFP(iw0, _ uint16, _ uint32) error {
	W := iw0>>9&1 != 0
	offset := uint32(iw0>>4) & 0x1f
	grp := int(iw0>>3) & 1
	reg := int(iw0 & 7)
	ea := m.Regs.R[REG_FP] + negimm5s4(offset)

	if m.group == group2 {
		return m.errIllegalOrCombination()
	}
	if W {
		val, err := m.regRead(grp, reg)
		if err != nil {
			return err
		}
		return m.store(ea, 4, val)
	}
	val, err := m.load(ea, 4)
	if err != nil {
		return err
	}
	return m.regWrite(grp, reg, val)
}

func (m *Machine) execLDSTii(iw0, _ uint16, _ uint32) error {
	W := iw0>>12&1 != 0
	op := int(iw0>>10) & 3
	offset := uint32(iw0>>6) & 0xf
	ptr := int(iw0>>3) & 7
	reg := int(iw0 & 7)

	var ea uint32
	if op == 0 || op == 3 {
		ea = m.Regs.P(ptr) + uimm4s4(offset)
	} else {
		ea = m.Regs.P(ptr) + uimm4s2(offset)
	}
	if m.group == group2 {
		return errCombination()
	}
	if W && op == 2 {
		return errIllegal()
	}
	if W {
		switch op {
		case 0:
			return m.store(ea, 4, m.Regs.D(reg))
		case 1:
			return m.store(ea, 2, m.Regs.D(reg))
		default:
			return m.store(ea, 4, m.Regs.P(reg))
		}
	}
	var v uint32
	var err error
	switch op {
	case 0, 3:
		v, err = m.load(ea, 4)
	case 1:
		v, err = m.load(ea, 2)
	case 2:
		v, err = m.loadSigned(ea, 2)
	}
	if err != nil {
		return err
	}
	if op == 3 {
		m.setP(reg, v)
	} else {
		m.setD(reg, v)
	}
	return nil
}

func (m *Machine) execLDSTidxI(iw0, iw1 uint16, _ uint32) error {
	W := iw0>>9&1 != 0
	Z := iw0>>8&1 != 0
	sz := int(iw0>>6) & 3
	ptr := int(iw0>>3) & 7
	reg := int(iw0 & 7)
	offset := uint32(iw1)

	if sz == 3 {
		return errIllegal()
	}
	size := 4 >> uint(sz)
	var ea uint32
	switch sz {
	case 0:
		ea = m.Regs.P(ptr) + imm16s4(offset)
	case 1:
		ea = m.Regs.P(ptr) + imm16s2(offset)
	case 2:
		ea = m.Regs.P(ptr) + imm16(offset)
	}

	if W {
		if sz != 0 && Z {
			return errIllegal()
		}
		val := m.Regs.D(reg)
		if Z {
			val = m.Regs.P(reg)
		}
		return m.store(ea, size, val)
	}
	var v uint32
	var err error
	if Z && sz != 0 {
		v, err = m.loadSigned(ea, size)
	} else {
		v, err = m.load(ea, size)
	}
	if err != nil {
		return err
	}
	if Z && sz == 0 {
		m.setP(reg, v)
	} else {
		m.setD(reg, v)
	}
	return nil
}
