package bfin

import "math"

const mask40 = 0xffffffffff

func (m *Machine) setAcc(n int, v uint64) {
	m.wb(REG_A0X+n*2, uint32(v>>32)&0xff)
	m.wb(REG_A0W+n*2, uint32(v))
}

// setAcc32 loads a 32-bit value sign extended into the accumulator.
func (m *Machine) setAcc32(n int, v uint32) {
	m.wb(REG_A0W+n*2, v)
	m.wb(REG_A0X+n*2, -(v>>31)&0xff)
}

func (m *Machine) setDL(n int, v uint32) { m.setD(n, hl(m.Regs.D(n), v)) }
func (m *Machine) setDH(n int, v uint32) { m.setD(n, hl(v, m.Regs.D(n))) }

func (m *Machine) setV(v bool) {
	m.setFlag(ASTAT_V, v)
	if v {
		m.setFlag(ASTAT_VS, true)
	}
}

type alu32Fields struct {
	HL, s, x    bool
	aopcde, aop int
	dst0, dst1  int
	src0, src1  int
}

func (m *Machine) execDsp32alu(iw0, iw1 uint16, _ uint32) error {
	f := alu32Fields{
		HL:     iw0>>5&1 != 0,
		aopcde: int(iw0 & 0x1f),
		aop:    int(iw1>>14) & 3,
		s:      iw1>>13&1 != 0,
		x:      iw1>>12&1 != 0,
		dst0:   int(iw1>>9) & 7,
		dst1:   int(iw1>>6) & 7,
		src0:   int(iw1>>3) & 7,
		src1:   int(iw1 & 7),
	}
	if f.aopcde >= 18 && f.aopcde <= 24 {
		return m.execByteOp(f)
	}

	aop, s, x, HL := f.aop, f.s, f.x, f.HL
	d0, d1 := m.Regs.D(f.src0), m.Regs.D(f.src1)
	plain := !x && !s && !HL

	switch f.aopcde {
	case 0:
		if HL {
			break
		}
		var fh, fl flags16
		var t0, t1 uint32
		if aop&2 != 0 {
			t0 = sub16(uint16(d0>>16), uint16(d1>>16), &fh, s, 0)
		} else {
			t0 = add16(uint16(d0>>16), uint16(d1>>16), &fh, s, 0)
		}
		if aop&1 != 0 {
			t1 = sub16(uint16(d0), uint16(d1), &fl, s, 0)
		} else {
			t1 = add16(uint16(d0), uint16(d1), &fl, s, 0)
		}
		m.setFlag(ASTAT_AC1, fh.carry)
		m.setFlag(ASTAT_AC0, fl.carry)
		m.setFlag(ASTAT_AZ, fh.zero || fl.zero)
		m.setFlag(ASTAT_AN, fh.neg || fl.neg)
		m.setV(fh.overflow || fl.overflow)
		t0 &= 0xffff
		t1 &= 0xffff
		if x {
			m.setD(f.dst0, t1<<16|t0)
		} else {
			m.setD(f.dst0, t0<<16|t1)
		}
		return nil

	case 1:
		if aop == 1 {
			break
		}
		if f.dst0 == f.dst1 {
			return errCombination()
		}
		var fl flags16
		sH, sL := uint16(d0>>16), uint16(d0)
		tH, tL := uint16(d1>>16), uint16(d1)
		var d1v, d0v uint32
		if !HL {
			d1v = add16(sH, tH, &fl, s, aop)&0xffff<<16 | add16(sL, tL, &fl, s, aop)&0xffff
			x0 := sub16(sH, tH, &fl, s, aop) & 0xffff
			x1 := sub16(sL, tL, &fl, s, aop) & 0xffff
			d0v = pick(x, x1<<16|x0, x0<<16|x1)
		} else {
			d1v = add16(sH, tH, &fl, s, aop)&0xffff<<16 | sub16(sL, tL, &fl, s, aop)&0xffff
			x0 := sub16(sH, tH, &fl, s, aop) & 0xffff
			x1 := add16(sL, tL, &fl, s, aop) & 0xffff
			d0v = pick(x, x1<<16|x0, x0<<16|x1)
		}
		m.setFlag(ASTAT_AZ, fl.zero)
		m.setFlag(ASTAT_AN, fl.neg)
		m.setV(fl.overflow)
		m.setD(f.dst0, d0v)
		m.setD(f.dst1, d1v)
		return nil

	case 2, 3:
		if x {
			break
		}
		a, b := d0, d1
		if aop&1 != 0 {
			b >>= 16
		}
		if aop&2 != 0 {
			a >>= 16
		}
		var fl flags16
		var val uint32
		if f.aopcde == 2 {
			val = add16(uint16(a), uint16(b), &fl, s, 0)
		} else {
			val = sub16(uint16(a), uint16(b), &fl, s, 0)
		}
		val &= 0xffff
		m.setFlag(ASTAT_AC0, fl.carry)
		m.setV(fl.overflow)
		if HL {
			m.setDH(f.dst0, val<<16)
		} else {
			m.setDL(f.dst0, val)
		}
		m.setFlag(ASTAT_AN, val&0x8000 != 0)
		m.setFlag(ASTAT_AZ, val == 0)
		return nil

	case 4:
		if x || HL {
			break
		}
		switch aop {
		case 0:
			m.setD(f.dst0, m.add32(d0, d1, true, s))
			return nil
		case 1:
			m.setD(f.dst0, m.sub32(d0, d1, true, s, false))
			return nil
		case 2:
			if f.dst0 == f.dst1 {
				return errCombination()
			}
			m.setD(f.dst1, m.add32(d0, d1, true, s))
			m.setD(f.dst0, m.sub32(d0, d1, true, s, true))
			return nil
		}

	case 5:
		if s {
			break
		}
		if !x && aop < 2 {
			m.round12(f, aop&1 != 0)
			return nil
		}
		if x && aop >= 2 {
			val0, val1 := int32(d0), int32(d1)
			if aop&1 != 0 {
				val1 = -val1
			}
			res := val0>>4 + val1>>4 + (val0&0xf+val1&0xf)>>4
			res += 0x8000
			r := uint32(res) >> 16
			if HL {
				m.setDH(f.dst0, r<<16)
			} else {
				m.setDL(f.dst0, r)
			}
			m.setFlag(ASTAT_AZ, r == 0)
			m.setFlag(ASTAT_AN, r&0x8000 != 0)
			m.setFlag(ASTAT_V, false)
			return nil
		}

	case 6:
		if !plain {
			break
		}
		switch aop {
		case 0:
			m.setD(f.dst0, m.max2x16(d0, d1))
			return nil
		case 1:
			m.setD(f.dst0, m.min2x16(d0, d1))
			return nil
		case 2:
			var hi, lo uint32
			if d0&0x80000000 != 0 {
				hi = uint32(-int32(int16(d0 >> 16)))
			} else {
				hi = d0 >> 16
			}
			hi <<= 16
			if d0&0x8000 != 0 {
				lo = uint32(-int32(int16(d0)))
			} else {
				lo = d0
			}
			lo &= 0xffff
			v := false
			if hi == 0x80000000 {
				hi, v = 0x7fff0000, true
			}
			if lo == 0x8000 {
				lo, v = 0x7fff, true
			}
			m.setD(f.dst0, hi|lo)
			m.setV(v)
			m.setNZ2x16(hi | lo)
			return nil
		}

	case 7:
		if x || HL {
			break
		}
		switch {
		case aop == 0 && !s:
			m.setD(f.dst0, m.max32(d0, d1))
			return nil
		case aop == 1 && !s:
			m.setD(f.dst0, m.min32(d0, d1))
			return nil
		case aop == 2 && !s:
			val := d0
			if val>>31 != 0 {
				val = -val
			}
			v := val == 0x80000000
			if v {
				val = 0x7fffffff
			}
			m.setD(f.dst0, val)
			m.setV(v)
			m.setNZ(val)
			return nil
		case aop == 3:
			val := d0
			if s && val == 0x80000000 {
				val = 0x7fffffff
				m.setV(true)
			} else if val != 0x80000000 {
				val = -val
			}
			m.setD(f.dst0, val)
			m.setFlag(ASTAT_AZ, val == 0)
			m.setFlag(ASTAT_AN, val&0x80000000 != 0)
			return nil
		}

	case 8:
		if x || HL {
			break
		}
		switch {
		case aop < 2 && !s:
			m.setAcc(aop, 0)
		case aop == 2 && !s:
			m.setAcc(0, 0)
			m.setAcc(1, 0)
		case aop < 3:
			m.saturateAccs(aop != 1, aop != 0)
		default:
			src := 1
			if s {
				src = 0
			}
			dst := 1 - src
			m.wb(REG_A0X+dst*2, m.Regs.AX(src))
			m.wb(REG_A0W+dst*2, m.Regs.AW(src))
		}
		return nil

	case 9:
		if x {
			break
		}
		a := aop >> 1
		switch {
		case aop&1 == 0 && !s && !HL:
			m.wb(REG_A0W+a*2, hl(m.Regs.AW(a), d0))
		case aop&1 == 0 && !s && HL:
			m.wb(REG_A0W+a*2, hl(d0, m.Regs.AW(a)))
		case aop&1 == 0 && s && !HL:
			m.setAcc32(a, d0)
		case aop&1 == 1 && !s && !HL:
			m.wb(REG_A0X+a*2, d0&0xff)
		default:
			return errIllegal()
		}
		return nil

	case 10:
		if plain && aop < 2 {
			m.setDL(f.dst0, uint32(int32(int8(m.Regs.AX(aop)))))
			return nil
		}

	case 11:
		if x {
			break
		}
		if aop == 3 {
			if HL {
				break
			}
			m.accSub(s)
			return nil
		}
		if (aop == 0 && (s || HL)) || (aop == 1 && s) || (aop == 2 && HL) {
			return errIllegal()
		}
		m.accAdd(f)
		return nil

	case 12:
		if x || s {
			break
		}
		switch {
		case aop == 3:
			m.round16(f)
			return nil
		case aop == 0 && !HL:
			t0hi, t0lo := int16(d0>>16), int16(d0)
			t1hi, t1lo := int16(d1>>16), int16(d1)
			if t0hi < 0 {
				t1hi = -t1hi
			}
			if t0lo < 0 {
				t1lo = -t1lo
			}
			t1hi += t1lo
			m.setD(f.dst0, uint32(uint16(t1hi))<<16|uint32(uint16(t1hi)))
			return nil
		case aop == 1 && !HL:
			if f.dst0 == f.dst1 {
				return errCombination()
			}
			a0, a1 := m.Regs.AW(0), m.Regs.AW(1)
			m.setD(f.dst0, uint32(int32(int16(a0>>16))+int32(int16(a0))))
			m.setD(f.dst1, uint32(int32(int16(a1>>16))+int32(int16(a1))))
			return nil
		}

	case 13:
		if !plain {
			break
		}
		if f.dst0 == f.dst1 {
			return errCombination()
		}
		m.vectorSearch(f, d0)
		return nil

	case 14:
		if x || s {
			break
		}
		if aop == 3 && !HL {
			r0, _ := saturateS40(-m.Regs.ExtendedAcc(0))
			r1, _ := saturateS40(-m.Regs.ExtendedAcc(1))
			m.setAcc(0, r0)
			m.setAcc(1, r1)
			return nil
		}
		if aop < 2 {
			src := m.Regs.ExtendedAcc(aop)
			r, v := saturateS40(-src)
			n := int(b2u(HL))
			m.setAcc(n, r)
			m.setFlag(ASTAT_AZ, r&mask40 == 0)
			m.setFlag(ASTAT_AN, r>>39&1 != 0)
			m.setFlag(astatAC[n], src == 0)
			m.setFlag(astatAV[n], v)
			if v {
				m.setFlag(astatAVS[n], true)
			}
			return nil
		}

	case 15:
		if !plain || aop != 3 {
			break
		}
		hi := uint32(-int32(int16(d0>>16))) << 16
		lo := uint32(-int32(int16(d0))) & 0xffff
		var v, ac0, ac1 bool
		if hi == 0x80000000 {
			hi, v = 0x7fff0000, true
		} else if hi == 0 {
			ac1 = true
		}
		if lo == 0x8000 {
			lo, v = 0x7fff, true
		} else if lo == 0 {
			ac0 = true
		}
		m.setD(f.dst0, hi|lo)
		m.setV(v)
		m.setFlag(ASTAT_AC0, ac0)
		m.setFlag(ASTAT_AC1, ac1)
		m.setNZ2x16(hi | lo)
		return nil

	case 16:
		if x || s {
			break
		}
		if aop == 3 && !HL {
			az := false
			for i := 0; i < 2; i++ {
				acc := m.absAcc(i, i)
				az = az || acc == 0
			}
			m.setFlag(ASTAT_AZ, az)
			m.setFlag(ASTAT_AN, false)
			return nil
		}
		if aop < 2 {
			acc := m.absAcc(aop, int(b2u(HL)))
			m.setFlag(ASTAT_AZ, acc == 0)
			m.setFlag(ASTAT_AN, false)
			return nil
		}

	case 17:
		if x || HL || aop > 1 {
			break
		}
		if f.dst0 == f.dst1 {
			return errCombination()
		}
		m.accAddSub(f)
		return nil
	}
	return errIllegal()
}

// round12 is Dreg_lo_hi = Dreg +/- Dreg (RND12).
func (m *Machine) round12(f alu32Fields, sub bool) {
	val0, val1 := int32(m.Regs.D(f.src0)), int32(m.Regs.D(f.src1))
	if sub {
		if val1 == math.MinInt32 {
			val1 = math.MaxInt32
		} else {
			val1 = -val1
		}
	}
	sBit1, sBit2 := val0 < 0, val1 < 0
	res := val0 + val1
	sBitRes1 := res < 0
	res += 0x0800
	sBitRes2 := res < 0
	signRes := res >> 27

	ovX := false
	if (sBit1 == sBit2 && sBit1 != sBitRes1) || (!sBit1 && !sBit2 && sBitRes2) || (signRes != 0 && signRes != -1) {
		switch {
		case sBit1 && sBit2:
			res = math.MinInt32
		case !sBit1 && !sBit2:
			res = math.MaxInt32
		case sBitRes1:
			res = math.MinInt32
		default:
			res = math.MaxInt32
		}
		ovX = true
	} else {
		res <<= 4
	}
	res >>= 16
	r := uint32(res)
	if f.HL {
		m.setDH(f.dst0, r<<16)
	} else {
		m.setDL(f.dst0, r)
	}
	m.setFlag(ASTAT_AZ, res == 0)
	m.setFlag(ASTAT_AN, r&0x8000 != 0)
	m.setV(ovX)
}

// round16 is Dreg_lo_hi = Dreg (RND).
func (m *Machine) round16(f alu32Fields) {
	res := int32(m.Regs.D(f.src0))
	sBitB := res < 0
	res += 0x8000
	sBitA := res < 0
	ovX := false
	if res>>16 != 0 && sBitB != sBitA {
		ovX = true
		if !sBitB {
			res = 0x7fff
		} else {
			res = 0x8000
		}
	} else {
		res >>= 16
	}
	r := uint32(res)
	if f.HL {
		m.setDH(f.dst0, r<<16)
	} else {
		m.setDL(f.dst0, r)
	}
	m.setFlag(ASTAT_AZ, res == 0)
	m.setFlag(ASTAT_AN, res < 0)
	m.setV(ovX)
}

// saturateAccs clamps the chosen accumulators to 32 bits sign extended.
func (m *Machine) saturateAccs(a0, a1 bool) {
	r := [2]uint64{1, 1}
	for i, use := range [2]bool{a0, a1} {
		if !use {
			continue
		}
		var sat bool
		v := uint64(saturateS32(m.Regs.ExtendedAcc(i), &sat))
		v |= -(v & 0x80000000)
		m.setAcc(i, v)
		m.setFlag(astatAV[i], sat)
		if sat {
			m.setFlag(astatAVS[i], true)
		}
		r[i] = v
	}
	m.setFlag(ASTAT_AZ, r[0] == 0 || r[1] == 0)
	m.setFlag(ASTAT_AN, r[0]>>31&1 != 0 || r[1]>>31&1 != 0)
}

// absAcc stores |A<src>| into A<dst> and returns it.
func (m *Machine) absAcc(src, dst int) int64 {
	acc := int64(m.Regs.ExtendedAcc(src))
	if acc < 0 {
		acc = -acc
	}
	av := acc == 1<<39
	if av {
		acc = 1<<39 - 1
	}
	m.setAcc(dst, uint64(acc))
	m.setFlag(astatAV[dst], av)
	if av {
		m.setFlag(astatAVS[dst], true)
	}
	return acc
}

// accSub is A0 -= A1, optionally (W32).
func (m *Machine) accSub(w32 bool) {
	acc0, acc1 := m.Regs.ExtendedAcc(0), m.Regs.ExtendedAcc(1)
	carry := acc1&mask40 < acc0&mask40
	sat := false
	acc0 -= acc1
	if int64(acc0) < -0x8000000000 {
		acc0, sat = ^uint64(0x7fffffffff), true
	} else if int64(acc0) >= 0x7fffffffff {
		acc0, sat = 0x7fffffffff, true
	}
	if w32 {
		if acc0&0x8000000000 != 0 {
			acc0 &= 0x80ffffffff
			sat = true
		} else {
			acc0 &= 0xffffffff
		}
	}
	m.setAcc(0, acc0)
	m.setFlag(ASTAT_AZ, acc0 == 0)
	m.setFlag(ASTAT_AN, acc0&0x8000000000 != 0)
	m.setFlag(ASTAT_AC0, carry)
	m.setFlag(ASTAT_AV0, sat)
	if sat {
		m.setFlag(ASTAT_AV0S, true)
	}
}

// accAdd covers A0 += A1 and its forms that also write a data register.
func (m *Machine) accAdd(f alu32Fields) {
	acc0, acc1 := m.Regs.ExtendedAcc(0), m.Regs.ExtendedAcc(1)
	carry := ^acc1&mask40 < acc0&mask40
	acc0, v := saturateS40(acc0 + acc1)
	if f.aop == 2 && f.s {
		if acc0&0x8000000000 != 0 {
			acc0 &= 0x80ffffffff
		} else {
			acc0 &= 0xffffffff
		}
	}
	m.setAcc(0, acc0)
	m.setFlag(ASTAT_AV0, v && acc1 != 0)
	if v {
		m.setFlag(ASTAT_AV0S, true)
	}
	if f.aop == 2 {
		m.setFlag(ASTAT_AZ, acc0 == 0)
		m.setFlag(ASTAT_AN, acc0&0x8000000000 != 0)
		m.setFlag(ASTAT_AC0, carry)
		return
	}

	var sat bool
	var dreg uint32
	if f.aop == 1 {
		dreg = saturateS32(rnd16(acc0)<<16, &sat)
		if f.HL {
			m.setDH(f.dst0, dreg)
		} else {
			m.setDL(f.dst0, dreg>>16)
		}
	} else {
		dreg = saturateS32(acc0, &sat)
		m.setD(f.dst0, dreg)
	}
	m.setFlag(ASTAT_AZ, dreg == 0)
	m.setFlag(ASTAT_AN, dreg&0x80000000 != 0)
	m.setFlag(ASTAT_AC0, carry)
	m.setV(sat)
}

// accAddSub is Dreg = A1 + A0, Dreg = A1 - A0 and its mirror.
func (m *Machine) accAddSub(f alu32Fields) {
	a0, a1 := m.Regs.ExtendedAcc(0), m.Regs.ExtendedAcc(1)
	acc0, acc1 := int64(a0), int64(a1)
	val1 := acc0 + acc1
	var val0 int64
	if f.aop == 1 {
		val0 = acc0 - acc1
	} else {
		val0 = acc1 - acc0
	}
	var sat0, sat1 bool
	sval0 := saturateS32(uint64(val0), &sat0)
	sval1 := saturateS32(uint64(val1), &sat1)
	if f.s {
		val0, val1 = int64(sval0), int64(sval1)
	}
	m.setD(f.dst0, uint32(val0))
	m.setD(f.dst1, uint32(val1))
	m.setV(sat0 || sat1)
	m.setFlag(ASTAT_AN, val0&0x80000000 != 0 || val1&0x80000000 != 0)
	m.setFlag(ASTAT_AZ, val0 == 0 || val1 == 0)
	m.setFlag(ASTAT_AC1, ^a0&mask40 < a1&mask40)
	if f.aop == 1 {
		m.setFlag(ASTAT_AC0, a1&mask40 <= a0&mask40)
	} else {
		m.setFlag(ASTAT_AC0, a0&mask40 <= a1&mask40)
	}
}

// vectorSearch is (Dreg, Dreg) = SEARCH Dreg (GT|GE|LT|LE).
func (m *Machine) vectorSearch(f alu32Fields, src uint32) {
	a0lo, a1lo := int16(m.Regs.AW(0)), int16(m.Regs.AW(1))
	srcLo, srcHi := int16(src), int16(src>>16)
	var upHi, upLo bool
	switch f.aop {
	case 0:
		upHi, upLo = srcHi > a1lo, srcLo > a0lo
	case 1:
		upHi, upLo = srcHi >= a1lo, srcLo >= a0lo
	case 2:
		upHi, upLo = srcHi < a1lo, srcLo < a0lo
	case 3:
		upHi, upLo = srcHi <= a1lo, srcLo <= a0lo
	}
	if upHi {
		m.setAcc(1, uint64(int64(srcHi)))
		m.setD(f.dst1, m.Regs.P(0))
	} else {
		m.setAcc(1, uint64(int64(a1lo)))
	}
	if upLo {
		m.setAcc(0, uint64(int64(srcLo)))
		m.setD(f.dst0, m.Regs.P(0))
	} else {
		m.setAcc(0, uint64(int64(a0lo)))
	}
}
