package bfin

// Video pixel operations. They read byte quads out of register pairs
// R1:0 or R3:2, aligned by the low bits of I0 and I1, and all imply
// DISALGNEXCPT for the loads issued alongside them.

func pairOK(src0, src1 int) bool {
	return (src0 == 0 || src0 == 2) && (src1 == 0 || src1 == 2)
}

// bytePair aligns the register pair starting at src by I<ireg>.
func (m *Machine) bytePair(src int, reverse bool, ireg int) uint32 {
	lo, hi := m.Regs.D(src), m.Regs.D(src+1)
	aln := m.Regs.I(ireg) & 3
	if reverse {
		return algn(hi, lo, aln)
	}
	return algn(lo, hi, aln)
}

func byteAt(v uint32, n int) uint32 { return v >> uint(8*n) & 0xff }

func (m *Machine) execByteOp(f alu32Fields) error {
	aop, s, x, HL := f.aop, f.s, f.x, f.HL
	if x {
		return errIllegal()
	}

	switch f.aopcde {
	case 18:
		if HL {
			break
		}
		if aop == 3 && !s {
			m.disAlgn = true
			return nil
		}
		if aop != 0 {
			break
		}
		// SAA: sum of absolute byte differences into the accumulator halves
		if !pairOK(f.src0, f.src1) {
			return errIllegal()
		}
		s0 := m.bytePair(f.src0, s, 0)
		s1 := m.bytePair(f.src1, s, 1)
		var sums [4]uint32
		for i := range sums {
			d := int32(byteAt(s0, i)) - int32(byteAt(s1, i))
			if d < 0 {
				d = -d
			}
			sums[i] = uint32(d)
		}
		acc0, acc1 := m.Regs.AW(0), m.Regs.AW(1)
		s0L := saturateU16(uint64(sums[0]+acc0&0xffff), nil)
		s0H := saturateU16(uint64(sums[1]+acc0>>16), nil)
		s1L := saturateU16(uint64(sums[2]+acc1&0xffff), nil)
		s1H := saturateU16(uint64(sums[3]+acc1>>16), nil)
		m.wb(REG_A0W, s0H<<16|s0L&0xffff)
		m.wb(REG_A0X, 0)
		m.wb(REG_A1W, s1H<<16|s1L&0xffff)
		m.wb(REG_A1X, 0)
		m.disAlgn = true
		return nil

	case 20:
		if HL || aop > 1 {
			break
		}
		// BYTEOP1P: byte averages, truncated when aop is set
		if !pairOK(f.src0, f.src1) {
			return errIllegal()
		}
		s0 := m.bytePair(f.src0, s, 0)
		s1 := m.bytePair(f.src1, s, 1)
		rnd := b2u(aop == 0)
		var val uint32
		for i := 0; i < 4; i++ {
			val |= (byteAt(s0, i) + byteAt(s1, i) + rnd) >> 1 << uint(8*i)
		}
		m.setD(f.dst0, val)
		m.disAlgn = true
		return nil

	case 21:
		if HL || aop > 1 {
			break
		}
		// BYTEOP16P and BYTEOP16M: byte sums or differences widened to halves
		if !pairOK(f.src0, f.src1) {
			return errIllegal()
		}
		if f.dst0 == f.dst1 {
			return errCombination()
		}
		s0 := m.bytePair(f.src0, s, 0)
		s1 := m.bytePair(f.src1, s, 1)
		op := func(i int) uint32 {
			if aop == 0 {
				return byteAt(s0, i) + byteAt(s1, i)
			}
			return byteAt(s0, i) - byteAt(s1, i)
		}
		m.setD(f.dst0, op(0)&0xffff|op(1)<<16)
		m.setD(f.dst1, op(2)&0xffff|op(3)<<16)
		m.disAlgn = true
		return nil

	case 22:
		if aop > 1 {
			break
		}
		// BYTEOP2P: averages of byte quads into one half of each word
		if !pairOK(f.src0, f.src1) {
			return errIllegal()
		}
		s0 := m.bytePair(f.src0, s, 0)
		s1 := m.bytePair(f.src1, s, 0)
		rnd := b2u(aop == 0) * 2
		tmp0 := (byteAt(s1, 1) + byteAt(s1, 0) + byteAt(s0, 1) + byteAt(s0, 0) + rnd) >> 2 & 0xff
		tmp1 := (byteAt(s1, 3) + byteAt(s1, 2) + byteAt(s0, 3) + byteAt(s0, 2) + rnd) >> 2 & 0xff
		sh := 8 * b2u(HL)
		m.setD(f.dst0, tmp1<<(16+sh)|tmp0<<sh)
		m.disAlgn = true
		return nil

	case 23:
		if aop != 0 {
			break
		}
		// BYTEOP3P: add bytes to halves and clip to 0..255
		if !pairOK(f.src0, f.src1) {
			return errIllegal()
		}
		s0 := m.bytePair(f.src0, s, 0)
		s1 := m.bytePair(f.src1, s, 1)
		sel := 8 * (1 - b2u(HL))
		tmp0 := int(int16(s0)) + int(s1>>sel&0xff)
		tmp1 := int(int16(s0>>16)) + int(s1>>(16+sel)&0xff)
		sh := 8 * b2u(HL)
		m.setD(f.dst0, uint32(clamp(tmp0, 0, 255))<<sh|uint32(clamp(tmp1, 0, 255))<<(16+sh))
		m.disAlgn = true
		return nil

	case 24:
		if HL {
			break
		}
		d0, d1 := m.Regs.D(f.src0), m.Regs.D(f.src1)
		if aop == 0 && !s {
			m.setD(f.dst0, byteAt(d0, 0)|byteAt(d0, 2)<<8|byteAt(d1, 0)<<16|byteAt(d1, 2)<<24)
			m.disAlgn = true
			return nil
		}
		if aop != 1 {
			break
		}
		// BYTEUNPACK
		if !pairOK(f.src0, f.src1) {
			return errIllegal()
		}
		if f.dst0 == f.dst1 {
			return errCombination()
		}
		order := uint(m.Regs.I(0)&3) * 8
		hi, lo := f.src0+1, f.src0
		if s {
			hi, lo = f.src0, f.src0+1
		}
		comb := uint64(m.Regs.D(hi))<<32 | uint64(m.Regs.D(lo))
		b := func(n uint) uint32 { return uint32(comb>>(n+order)) & 0xff }
		m.setD(f.dst0, b(0)|b(8)<<16)
		m.setD(f.dst1, b(16)|b(24)<<16)
		m.disAlgn = true
		return nil
	}
	return errIllegal()
}
