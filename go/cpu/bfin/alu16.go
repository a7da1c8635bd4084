package bfin

// shiftCount clamps a register shift count so huge values behave like a
// full-width shift.
func shiftCount(v uint32) int {
	if v > 64 {
		return 64
	}
	return int(v)
}

func (m *Machine) execALU2op(iw0, _ uint16, _ uint32) error {
	opc := int(iw0>>6) & 0xf
	src := int(iw0>>3) & 7
	dst := int(iw0 & 7)
	d, s := m.Regs.D(dst), m.Regs.D(src)

	var val uint32
	switch opc {
	case 0:
		val = uint32(m.ashiftrt(uint64(d), shiftCount(s), 32))
	case 1:
		if s <= 0x1f {
			val = uint32(m.lshiftrt(uint64(d), int(s), 32))
		}
	case 2:
		val = uint32(m.lshift(uint64(d), shiftCount(s), 32, false, false))
	case 3:
		val = d * s
		m.cycleDelay = 3
	case 4, 5:
		val = m.addAndShift(d, s, opc-3)
	case 8:
		val = m.divq(d, uint16(s))
	case 9:
		val = m.divs(d, uint16(s))
	case 10:
		val = uint32(int32(int16(s)))
		m.setLogical(val)
	case 11:
		val = s & 0xffff
		m.setLogical(val)
	case 12:
		val = uint32(int32(int8(s)))
		m.setLogical(val)
	case 13:
		val = s & 0xff
		m.setLogical(val)
	case 14:
		val = -s
		m.setNZ(val)
		m.setFlag(ASTAT_V, s == 0x80000000)
		if s == 0x80000000 {
			m.setFlag(ASTAT_VS, true)
		}
		m.setFlag(ASTAT_AC0, s == 0)
	case 15:
		val = ^s
		m.setLogical(val)
	default:
		return errIllegal()
	}
	m.setD(dst, val)
	return nil
}

func (m *Machine) execPTR2op(iw0, _ uint16, _ uint32) error {
	opc := int(iw0>>6) & 7
	src := int(iw0>>3) & 7
	dst := int(iw0 & 7)
	d, s := m.Regs.P(dst), m.Regs.P(src)

	var val uint32
	switch opc {
	case 0:
		val = d - s
	case 1:
		val = s << 2
	case 3:
		val = s >> 2
	case 4:
		val = s >> 1
	case 5:
		val = addBrev(d, s)
	case 6:
		val = (d + s) << 1
	case 7:
		val = (d + s) << 2
	default:
		return errIllegal()
	}
	m.setP(dst, val)
	return nil
}

func (m *Machine) execLOGI2op(iw0, _ uint16, _ uint32) error {
	opc := int(iw0>>8) & 7
	uimm := uimm5(uint32(iw0 >> 3))
	dst := int(iw0 & 7)
	d := m.Regs.D(dst)

	var val uint32
	switch opc {
	case 0:
		m.setCC(d>>uimm&1 == 0)
		return nil
	case 1:
		m.setCC(d>>uimm&1 != 0)
		return nil
	case 2:
		val = d | 1<<uimm
		m.setLogical(val)
	case 3:
		val = d ^ 1<<uimm
		m.setLogical(val)
	case 4:
		val = d &^ (1 << uimm)
		m.setLogical(val)
	case 5:
		val = uint32(m.ashiftrt(uint64(d), int(uimm), 32))
	case 6:
		val = uint32(m.lshiftrt(uint64(d), int(uimm), 32))
	case 7:
		val = uint32(m.lshift(uint64(d), int(uimm), 32, false, false))
	}
	m.setD(dst, val)
	return nil
}

func (m *Machine) execCOMP3op(iw0, _ uint16, _ uint32) error {
	opc := int(iw0>>9) & 7
	dst := int(iw0>>6) & 7
	src1 := int(iw0>>3) & 7
	src0 := int(iw0 & 7)

	if opc >= 5 {
		m.setP(dst, m.Regs.P(src0)+m.Regs.P(src1)<<uint(opc-5))
		return nil
	}
	a, b := m.Regs.D(src0), m.Regs.D(src1)
	var val uint32
	switch opc {
	case 0:
		val = m.add32(a, b, true, false)
	case 1:
		val = m.sub32(a, b, true, false, false)
	case 2:
		val = a & b
		m.setLogical(val)
	case 3:
		val = a | b
		m.setLogical(val)
	case 4:
		val = a ^ b
		m.setLogical(val)
	}
	m.setD(dst, val)
	return nil
}

func (m *Machine) execCOMPI2opD(iw0, _ uint16, _ uint32) error {
	op := iw0>>10&1 != 0
	imm := imm7(uint32(iw0 >> 3))
	dst := int(iw0 & 7)
	if op {
		m.setD(dst, m.add32(m.Regs.D(dst), imm, true, false))
	} else {
		m.setD(dst, imm)
	}
	return nil
}

func (m *Machine) execCOMPI2opP(iw0, _ uint16, _ uint32) error {
	op := iw0>>10&1 != 0
	imm := imm7(uint32(iw0 >> 3))
	dst := int(iw0 & 7)
	if op {
		m.setP(dst, m.Regs.P(dst)+imm)
	} else {
		m.setP(dst, imm)
	}
	return nil
}
