package bfin

// shiftMag sign extends the low six bits of a register shift magnitude.
func shiftMag(v uint32) int {
	return int(int8(uint8(v<<2)) >> 2)
}

func half16(v uint32, high bool) uint64 {
	if high {
		return uint64(v >> 16)
	}
	return uint64(v & 0xffff)
}

func (m *Machine) setHalf(dst int, high bool, v uint32) {
	if high {
		m.setDH(dst, v<<16)
	} else {
		m.setDL(dst, v)
	}
}

// pair16 runs op on two halfwords in order, ORing the flags of both.
func (m *Machine) pair16(first, second uint64, op func(uint64) uint64) (uint32, uint32) {
	a := op(first) & 0xffff
	astat := m.astat
	b := op(second) & 0xffff
	m.setASTAT(m.astat | astat)
	return uint32(a), uint32(b)
}

func signChanged16(before uint64, after uint32) bool {
	return uint32(before>>15)&1 != after>>15&1
}

// rotateCC32 rotates through CC. A zero count leaves CC alone.
func (m *Machine) rotateCC32(v uint32, shift int) uint32 {
	cc := b2u(m.cc())
	r := rot32(v, shift, &cc)
	if shift != 0 {
		m.setCC(cc != 0)
	}
	return r
}

func (m *Machine) rotateAcc(n, shift int) {
	cc := b2u(m.cc())
	m.setAcc(n, rot40(m.Regs.UnextendedAcc(n), shift, &cc))
	if shift != 0 {
		m.setCC(cc != 0)
	}
}

// sgnExtend40 copies the sign of org down to the highest set bit of val.
func sgnExtend40(org, val uint64) uint64 {
	if org&(1<<39) == 0 {
		all := ^uint64(0)
		return val &^ (all << 39)
	}
	n := 40
	for ; n >= 0; n-- {
		if val&(1<<uint(n)) != 0 {
			break
		}
	}
	if n < 0 {
		return ^uint64(0)
	}
	return val | ^uint64(0)<<uint(n)
}

func (m *Machine) execDsp32shift(iw0, iw1 uint16, _ uint32) error {
	sopcde := int(iw0 & 0x1f)
	sop := int(iw1>>14) & 3
	HLs := int(iw1>>12) & 3
	dst0 := int(iw1>>9) & 7
	src0 := int(iw1>>3) & 7
	src1 := int(iw1 & 7)
	d0, d1 := m.Regs.D(src0), m.Regs.D(src1)
	shft := shiftMag(d0)

	switch {
	case sopcde == 0 && sop < 2:
		val := half16(d1, HLs&1 != 0)
		var r uint32
		if shft <= 0 {
			r = uint32(m.ashiftrt(val, -shft, 16) & 0xffff)
		} else {
			r = uint32(m.lshift(val, shft, 16, sop == 1, true))
			if signChanged16(val, r) {
				m.setV(true)
			}
		}
		m.setHalf(dst0, HLs&2 != 0, r)
		return nil

	case sopcde == 0 && sop == 2:
		val := uint32(half16(d1, HLs&1 != 0))
		if shft < 0 {
			val >>= uint(-shft)
		} else {
			val <<= uint(shft)
		}
		val &= 0xffff
		m.setHalf(dst0, HLs&2 != 0, val)
		m.setFlag(ASTAT_AZ, val == 0)
		m.setFlag(ASTAT_AN, val&0x8000 != 0)
		m.setFlag(ASTAT_V, false)
		return nil

	case sopcde == 3 && HLs < 2 && sop == 2:
		m.rotateAcc(HLs, int(int32(imm6(d0&0xffff))))
		return nil

	case sopcde == 3 && HLs < 2 && sop == 0:
		acc := m.Regs.ExtendedAcc(HLs)
		var val uint64
		if shft <= 0 {
			val = m.ashiftrt(acc, -shft, 40)
		} else {
			val = m.lshift(acc, shft, 40, false, false)
		}
		m.setAcc(HLs, val)
		m.setFlag(astatAV[HLs], false)
		return nil

	case sopcde == 3 && HLs < 2 && sop == 1:
		acc := m.Regs.UnextendedAcc(HLs)
		var val uint64
		if shft <= 0 {
			val = m.lshiftrt(acc, -shft, 40)
		} else {
			val = m.lshift(acc, shft, 40, false, false)
		}
		m.setAcc(HLs, val)
		m.setFlag(astatAV[HLs], false)
		return nil
	}

	if HLs != 0 {
		return errIllegal()
	}

	switch sopcde {
	case 1:
		lo, hi := half16(d1, false), half16(d1, true)
		var r0, r1 uint32
		switch {
		case sop < 2 && shft <= 0:
			r0, r1 = m.pair16(lo, hi, func(v uint64) uint64 { return m.ashiftrt(v, -shft, 16) })
		case sop < 2:
			r0, r1 = m.pair16(lo, hi, func(v uint64) uint64 { return m.lshift(v, shft, 16, sop == 1, true) })
			if signChanged16(lo, r0) || signChanged16(hi, r1) {
				m.setV(true)
			}
		case sop == 2 && shft <= 0:
			r0, r1 = m.pair16(lo, hi, func(v uint64) uint64 { return m.lshiftrt(v, -shft, 16) })
		case sop == 2:
			r0, r1 = m.pair16(lo, hi, func(v uint64) uint64 { return m.lshift(v, shft, 16, false, false) })
		default:
			return errIllegal()
		}
		m.setD(dst0, r1<<16|r0)

	case 2:
		if sop == 3 {
			m.setD(dst0, m.rotateCC32(d1, int(int32(imm6(d0&0xffff)))))
			return nil
		}
		if shft < 0 {
			if sop == 2 {
				m.setD(dst0, uint32(m.lshiftrt(uint64(d1), -shft, 32)))
			} else {
				m.setD(dst0, uint32(m.ashiftrt(uint64(d1), -shft, 32)))
			}
			return nil
		}
		val := uint32(m.lshift(uint64(d1), shft, 32, sop == 1, true))
		m.setD(dst0, val)
		if d1>>31 != val>>31 {
			m.setV(true)
		}

	case 4:
		sv0, sv1 := d0, d1
		if sop&1 != 0 {
			sv0 >>= 16
		}
		if sop&2 != 0 {
			sv1 >>= 16
		}
		m.setD(dst0, sv1<<16|sv0&0xffff)

	case 5:
		switch sop {
		case 0:
			m.setDL(dst0, uint32(signbits(uint64(d1), 32)))
		case 1:
			m.setDL(dst0, uint32(signbits(uint64(d1), 16)))
		case 2:
			m.setDL(dst0, uint32(signbits(uint64(d1>>16), 16)))
		default:
			return errIllegal()
		}

	case 6:
		switch sop {
		case 0, 1:
			acc := uint64(m.Regs.AX(sop)&0xff)<<32 | uint64(m.Regs.AW(sop))
			m.setDL(dst0, uint32(signbits(acc, 40))&0xffff)
		case 3:
			m.setDL(dst0, ones(d1))
		default:
			return errIllegal()
		}

	case 7:
		src0lo := uint16(d0)
		var tmp uint16
		switch sop {
		case 0:
			sv1 := uint16(signbits(uint64(d1), 32))
			tmp = src0lo
			if sv1&0x1f < src0lo&0x1f {
				tmp = sv1
			}
		case 1:
			hi := uint16(signbits(uint64(d1>>16), 16))
			lo := uint16(signbits(uint64(d1&0xffff), 16))
			switch {
			case hi&0xf < lo&0xf && hi&0xf < src0lo&0xf:
				tmp = hi
			case hi&0xf < lo&0xf:
				tmp = src0lo
			case lo&0xf < src0lo&0xf:
				tmp = lo
			default:
				tmp = src0lo
			}
		case 2, 3:
			t := uint16(signbits(half16(d1, sop == 3), 16))
			tmp = src0lo
			if t&0xf < src0lo&0xf {
				tmp = t
			}
		}
		m.setDL(dst0, uint32(tmp))

	case 8:
		if sop > 1 {
			return errIllegal()
		}
		if src0 == src1 {
			return errCombination()
		}
		acc := m.Regs.UnextendedAcc(0)
		if sop == 0 {
			acc = acc>>2 | uint64(d0&1)<<38 | uint64(d1&1)<<39
			m.setD(src0, d0>>1)
			m.setD(src1, d1>>1)
		} else {
			acc = acc<<2 | uint64(d0>>31&1) | uint64(d1>>30&2)
			m.setD(src0, d0<<1)
			m.setD(src1, d1<<1)
		}
		m.setAcc(0, acc)

	case 9:
		// VIT_MAX
		if sop < 2 {
			acc0 := m.Regs.UnextendedAcc(0)
			sL, sH := int16(d1), int16(d1>>16)
			if sop&1 != 0 {
				acc0 = (acc0 & 0xfeffffffff) >> 1
			} else {
				acc0 <<= 1
			}
			out := sL
			if (int32(sH)-int32(sL))&0x8000 == 0 {
				out = sH
				acc0 |= uint64(pick(sop&1 != 0, 0x80000000, 1))
			}
			m.setAcc(0, acc0)
			m.setDL(dst0, uint32(uint16(out)))
			return nil
		}
		acc0 := int64(m.Regs.ExtendedAcc(0))
		s0L, s0H := int16(d0), int16(d0>>16)
		s1L, s1H := int16(d1), int16(d1>>16)
		if sop&1 != 0 {
			acc0 >>= 2
		} else {
			acc0 <<= 2
		}
		out0 := s0L
		if (int32(s0H)-int32(s0L))&0x8000 == 0 {
			out0 = s0H
			acc0 |= int64(pick(sop&1 != 0, 0x40000000, 2))
		}
		out1 := s1L
		if (int32(s1H)-int32(s1L))&0x8000 == 0 {
			out1 = s1H
			acc0 |= int64(pick(sop&1 != 0, 0x80000000, 1))
		}
		m.setAcc(0, uint64(acc0))
		m.setD(dst0, uint32(uint16(out1))<<16|uint32(uint16(out0)))

	case 10:
		var x uint32
		switch sop {
		case 0, 1:
			// EXTRACT
			mask := uint32(1)<<(d0&0x1f) - 1
			x = d1 >> (d0 >> 8 & 0x1f) & mask
			if sop == 1 {
				if sgn := uint32(1) << (d0 & 0x1f) >> 1; x&sgn != 0 {
					x |= ^mask
				}
			}
		default:
			// DEPOSIT
			n := d0 & 0x1f
			if n > 16 {
				n = 16
			}
			mask := uint32(1)<<n - 1
			fgnd := d0 >> 16 & mask
			shft := d0 >> 8 & 0x1f
			if sop == 3 {
				mask = ^uint32(0)
				fgnd = uint32(int32(int16(uint16(fgnd<<(16-n)))) >> (16 - n))
			}
			x = d1&^(mask<<shft) | fgnd<<shft
		}
		m.setD(dst0, x)
		m.setLogical(x)

	case 11:
		// BXORSHIFT and BXOR
		if sop > 1 {
			return errIllegal()
		}
		acc0 := m.Regs.UnextendedAcc(0)
		if sop == 0 {
			acc0 <<= 1
		}
		cc := xorReduce(acc0, uint64(d0))
		m.setCC(cc != 0)
		m.setDL(dst0, cc)
		if sop == 0 {
			m.setAcc(0, acc0)
		}

	case 12:
		if sop > 1 {
			return errIllegal()
		}
		acc0, acc1 := m.Regs.UnextendedAcc(0), m.Regs.UnextendedAcc(1)
		cc := b2u(m.cc()) ^ xorReduce(acc0, acc1)
		if sop == 0 {
			m.setAcc(0, acc0<<1|uint64(cc))
		} else {
			m.setCC(cc != 0)
			m.setDL(dst0, cc)
		}

	case 13:
		// ALIGN8, ALIGN16, ALIGN24
		if sop == 3 {
			return errIllegal()
		}
		shift := uint(sop+1) * 8
		m.setD(dst0, d1<<(32-shift)|d0>>shift)

	default:
		return errIllegal()
	}
	return nil
}

func (m *Machine) execDsp32shiftimm(iw0, iw1 uint16, _ uint32) error {
	sopcde := int(iw0 & 0x1f)
	sop := int(iw1>>14) & 3
	HLs := int(iw1>>12) & 3
	dst0 := int(iw1>>9) & 7
	bit8 := iw1>>8&1 != 0
	immag := uint32(iw1>>3) & 0x3f
	newimmag := uint32(-(int(iw1) >> 3)) & 0x3f
	src1 := int(iw1 & 7)
	d1 := m.Regs.D(src1)

	if sopcde == 0 {
		in := half16(d1, HLs&1 != 0)
		var result uint32
		switch {
		case sop == 0:
			if newimmag > 16 {
				result = uint32(m.lshift(in, 16-int(newimmag&0xf), 16, false, true))
				if signChanged16(in, result) {
					m.setV(true)
				}
			} else {
				result = uint32(m.ashiftrt(in, int(newimmag), 16))
			}
		case sop == 1 && !bit8:
			result = uint32(m.lshift(in, int(immag), 16, true, true))
		case sop == 1:
			if newimmag > 16 {
				inshift := uint32(in<<(32-newimmag)) & 0xffff
				if uint32(in)&0x8000 != inshift&0x8000 {
					result = pick(in&0x8000 != 0, 0x8000, 0x7fff)
					m.setV(true)
				} else {
					result = inshift
					m.setFlag(ASTAT_V, false)
				}
				m.setFlag(ASTAT_AZ, result == 0)
				m.setFlag(ASTAT_AN, result&0x8000 != 0)
			} else {
				result = uint32(m.ashiftrt(in, int(newimmag), 16))
			}
		case sop == 2 && bit8:
			result = uint32(m.lshiftrt(in, int(newimmag), 16))
		case sop == 2:
			result = uint32(m.lshift(in, int(immag), 16, false, true))
		default:
			return errIllegal()
		}
		m.setHalf(dst0, HLs&2 != 0, result&0xffff)
		return nil
	}

	if sopcde == 3 && HLs < 2 {
		switch {
		case sop == 2:
			m.rotateAcc(HLs, int(int32(imm6(immag))))
			return nil
		case sop == 0 && bit8:
			acc := m.Regs.ExtendedAcc(HLs)
			val := sgnExtend40(acc, acc>>uimm5(newimmag))
			m.setAcc(HLs, val)
			m.setFlag(ASTAT_AN, val&(1<<39) != 0)
			m.setFlag(ASTAT_AZ, val == 0)
			m.setFlag(astatAV[HLs], false)
			return nil
		case sop < 2:
			acc := m.Regs.UnextendedAcc(HLs)
			if sop == 0 {
				acc <<= uimm5(immag)
			} else {
				acc >>= uimm5(newimmag)
			}
			m.setAcc(HLs, acc)
			m.setFlag(astatAV[HLs], false)
			m.setFlag(ASTAT_AN, acc&0x8000000000 != 0)
			m.setFlag(ASTAT_AZ, acc&mask40 == 0)
			return nil
		}
	}
	if HLs != 0 {
		return errIllegal()
	}

	lo, hi := half16(d1, false), half16(d1, true)
	switch {
	case sopcde == 1 && sop == 1 && !bit8:
		count := int(int32(imm5(immag)))
		var h, l uint32
		if count >= 0 {
			h, l = m.pair16(hi, lo, func(v uint64) uint64 { return m.lshift(v, count, 16, true, true) })
		} else {
			h, l = m.pair16(hi, lo, func(v uint64) uint64 { return m.ashiftrt(v, -count, 16) })
		}
		m.setD(dst0, h<<16|l)

	case sopcde == 1 && sop == 2 && bit8:
		count := int(int32(imm5(newimmag)))
		l, h := m.pair16(lo, hi, func(v uint64) uint64 { return m.lshiftrt(v, count, 16) })
		m.setD(dst0, h<<16|l)

	case sopcde == 1 && sop == 2:
		count := int(int32(imm5(immag)))
		l, h := m.pair16(lo, hi, func(v uint64) uint64 { return m.lshift(v, count, 16, false, true) })
		m.setD(dst0, h<<16|l)

	case sopcde == 1 && (sop == 0 || sop == 1):
		count := int(uimm5(newimmag))
		var l, h uint32
		if count > 16 {
			l, h = m.pair16(lo, hi, func(v uint64) uint64 { return m.lshift(v, 16-count&0xf, 16, false, true) })
			if signChanged16(lo, l) || signChanged16(hi, h) {
				m.setV(true)
			}
		} else {
			l, h = m.pair16(lo, hi, func(v uint64) uint64 { return m.ashiftrt(v, count, 16) })
		}
		m.setD(dst0, h<<16|l)

	case sopcde == 2 && sop == 1:
		if count := int(int32(imm6(immag))); count < 0 {
			m.setD(dst0, uint32(m.ashiftrt(uint64(d1), -count, 32)))
		} else {
			m.setD(dst0, uint32(m.lshift(uint64(d1), count, 32, true, true)))
		}

	case sopcde == 2 && sop == 2:
		if count := int(int32(imm6(newimmag))); count < 0 {
			m.setD(dst0, uint32(m.lshift(uint64(d1), -count, 32, false, true)))
		} else {
			m.setD(dst0, uint32(m.lshiftrt(uint64(d1), count, 32)))
		}

	case sopcde == 2 && sop == 3:
		m.setD(dst0, m.rotateCC32(d1, int(int32(imm6(immag)))))

	case sopcde == 2 && sop == 0:
		if count := int(int32(imm6(newimmag))); count < 0 {
			m.setD(dst0, uint32(m.lshift(uint64(d1), -count, 32, false, true)))
		} else {
			m.setD(dst0, uint32(m.ashiftrt(uint64(d1), count, 32)))
		}

	default:
		return errIllegal()
	}
	return nil
}
