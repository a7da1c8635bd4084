package bfin

// dsp32 multiplier fields shared by the MAC and plain multiply forms.
type macFields struct {
	mmod       int
	MM, P      bool
	w1, w0     bool
	op1, op0   int
	h01, h11   bool
	h00, h10   bool
	dst        int
	src0, src1 int
}

func decodeMacFields(iw0, iw1 uint16) macFields {
	return macFields{
		mmod: int(iw0>>5) & 0xf,
		MM:   iw0>>4&1 != 0,
		P:    iw0>>3&1 != 0,
		w1:   iw0>>2&1 != 0,
		op1:  int(iw0 & 3),
		h01:  iw1>>15&1 != 0,
		h11:  iw1>>14&1 != 0,
		w0:   iw1>>13&1 != 0,
		op0:  int(iw1>>11) & 3,
		h00:  iw1>>10&1 != 0,
		h10:  iw1>>9&1 != 0,
		dst:  int(iw1>>6) & 7,
		src0: int(iw1>>3) & 7,
		src1: int(iw1 & 7),
	}
}

func (m *Machine) execDsp32mac(iw0, iw1 uint16, _ uint32) error {
	f := decodeMacFields(iw0, iw1)

	if !f.w0 && !f.w1 && f.op1 == 3 && f.op0 == 3 {
		return errIllegal()
	}
	if (f.w1 || f.w0) && f.mmod == M_W32 {
		return errIllegal()
	}
	valid := 0x1b5f
	if f.P {
		valid = 0x131b
	}
	if 1<<uint(f.mmod)&valid == 0 {
		return errIllegal()
	}
	// register pairs start on an even register
	if f.P && f.w1 && f.dst&1 != 0 {
		return errIllegal()
	}

	res := m.Regs.D(f.dst)
	var v0, v1, n0, n1, zero bool
	if f.w1 || f.op1 != 3 {
		res1, err := m.macFunc(1, f.op1, f.h01, f.h11, f.src0, f.src1, f.mmod, f.MM, f.P, &v1, &n1)
		if err != nil {
			return err
		}
		if f.op1 == 3 {
			zero = res1 == 0
		}
		if f.w1 {
			if f.P {
				m.setD(f.dst+1, res1)
			} else {
				if res1&0xffff0000 != 0 {
					return errIllegal()
				}
				res = hl(res1<<16, res)
			}
		} else {
			v1 = false
		}
	}
	if f.w0 || f.op0 != 3 {
		res0, err := m.macFunc(0, f.op0, f.h00, f.h10, f.src0, f.src1, f.mmod, false, f.P, &v0, &n0)
		if err != nil {
			return err
		}
		if f.op0 == 3 {
			zero = zero || res0 == 0
		}
		if f.w0 {
			if f.P {
				m.setD(f.dst, res0)
			} else {
				if res0&0xffff0000 != 0 {
					return errIllegal()
				}
				res = hl(res, res0)
			}
		} else {
			v0 = false
		}
	}

	if f.P || f.w0 || f.w1 {
		if !f.P {
			m.setD(f.dst, res)
		}
		m.setFlag(ASTAT_V, v0 || v1)
		if v0 || v1 {
			m.setFlag(ASTAT_VS, true)
		}
	}
	// moves out of an accumulator report its flags
	mv0 := f.w0 && f.op0 == 3
	mv1 := f.w1 && f.op1 == 3
	if mv0 || mv1 {
		m.setFlag(ASTAT_AZ, zero)
		m.setFlag(ASTAT_AN, (mv0 && n0) || (mv1 && n1))
	}
	return nil
}

func (m *Machine) execDsp32mult(iw0, iw1 uint16, _ uint32) error {
	f := decodeMacFields(iw0, iw1)

	if !f.w1 && !f.w0 {
		return errIllegal()
	}
	valid := 0x1b57
	if f.P {
		valid = 0x313
	}
	if 1<<uint(f.mmod)&valid == 0 {
		return errIllegal()
	}
	if f.P && (f.dst&1 != 0 || f.op1 != 0 || f.op0 != 0 || !isMacmodPmove(f.mmod)) {
		return errIllegal()
	}
	if !f.P && (f.op1 != 0 || f.op0 != 0 || !isMacmodHmove(f.mmod)) {
		return errIllegal()
	}

	res := m.Regs.D(f.dst)
	var sat0, sat1, v0, v1 bool
	if f.w1 {
		r, sat := m.multFunc(f.h01, f.h11, f.src0, f.src1, f.mmod, f.MM)
		sat1 = sat
		res1, err := extractMult(r, f.mmod, f.MM, f.P, &v1)
		if err != nil {
			return err
		}
		if f.P {
			m.setD(f.dst+1, res1)
		} else {
			if res1&0xffff0000 != 0 {
				return errIllegal()
			}
			res = hl(res1<<16, res)
		}
	}
	if f.w0 {
		r, sat := m.multFunc(f.h00, f.h10, f.src0, f.src1, f.mmod, false)
		sat0 = sat
		res0, err := extractMult(r, f.mmod, false, f.P, &v0)
		if err != nil {
			return err
		}
		if f.P {
			m.setD(f.dst, res0)
		} else {
			if res0&0xffff0000 != 0 {
				return errIllegal()
			}
			res = hl(res, res0)
		}
	}
	if !f.P {
		m.setD(f.dst, res)
	}
	v := sat0 || sat1 || v0 || v1
	m.setFlag(ASTAT_V, v)
	if v {
		m.setFlag(ASTAT_VS, true)
	}
	return nil
}
