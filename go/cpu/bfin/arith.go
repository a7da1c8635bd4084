package bfin

// Exact integer primitives shared by the ALU, shifter and multiplier.
// Anything that touches ASTAT is a Machine method and writes the working copy.

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func signExtend(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}

func hl(h, l uint32) uint32 {
	return h&0xffff0000 | l&0xffff
}

func (m *Machine) flag(bit int) bool {
	return m.astat&(1<<uint(bit)) != 0
}

// setFlag updates the ASTAT working copy. AC0 and V are mirrored into their copies.
func (m *Machine) setFlag(bit int, v bool) {
	set := func(b int) {
		if v {
			m.astat |= 1 << uint(b)
		} else {
			m.astat &^= 1 << uint(b)
		}
	}
	set(bit)
	switch bit {
	case ASTAT_AC0:
		set(ASTAT_AC0_COPY)
	case ASTAT_V:
		set(ASTAT_V_COPY)
	}
}

func (m *Machine) setASTAT(v uint32) {
	m.astat = v & astatMask
}

func (m *Machine) setNZ(val uint32) {
	m.setFlag(ASTAT_AZ, val == 0)
	m.setFlag(ASTAT_AN, val>>31 != 0)
}

func (m *Machine) setNZ2x16(val uint32) {
	m.setFlag(ASTAT_AN, int16(val) < 0 || int16(val>>16) < 0)
	m.setFlag(ASTAT_AZ, int16(val) == 0 || int16(val>>16) == 0)
}

func (m *Machine) setLogical(val uint32) {
	m.setNZ(val)
	m.setFlag(ASTAT_AC0, false)
	m.setFlag(ASTAT_V, false)
}

// addBrev adds with the carry propagating from bit 31 down to bit 0.
func addBrev(a, b uint32) uint32 {
	var r, cy uint32
	mask := uint32(0x80000000)
	for i := 31; i >= 0; i-- {
		s := (a&mask)>>uint(i) + (b&mask)>>uint(i) + cy
		cy = s >> 1
		r |= (s & 1) << uint(i)
		mask >>= 1
	}
	return r
}

// dagadd computes I += M with circular buffer wrap, exactly as the hardware does.
func (r *RegFile) dagadd(dag int, M int32) uint32 {
	i := uint64(r.I(dag))
	l := uint64(r.L(dag))
	b := uint64(r.B(dag))
	mm := uint64(uint32(M))
	const msb, car = uint64(1) << 31, uint64(1) << 32

	IM := i + mm
	im32 := uint32(IM)
	LB := l + b
	lb32 := uint32(LB)
	var res uint32
	if M < 0 {
		iml32 := uint32(i + mm + l)
		if i&msb != 0 || IM&car != 0 {
			res = pick(im32 < uint32(b), iml32, im32)
		} else {
			res = pick(im32 < uint32(b), im32, iml32)
		}
	} else {
		iml32 := uint32(i + mm - l)
		if IM&car == LB&car {
			res = pick(im32 < lb32, im32, iml32)
		} else {
			res = pick(im32 < lb32, iml32, im32)
		}
	}
	return res
}

// dagsub computes I -= M with circular buffer wrap.
func (r *RegFile) dagsub(dag int, M int32) uint32 {
	i := uint64(r.I(dag))
	l := uint64(r.L(dag))
	b := uint64(r.B(dag))
	mm := uint64(uint32(M))
	mbar := uint64(uint32(^mm + 1))
	const msb, car = uint64(1) << 31, uint64(1) << 32

	IM := i + mbar
	im32 := uint32(IM)
	LB := l + b
	lb32 := uint32(LB)
	var res uint32
	if M < 0 {
		iml32 := uint32(i + mbar - l)
		if (i&msb != 0 && IM&car != 0) == (LB&car != 0) {
			res = pick(im32 < lb32, im32, iml32)
		} else {
			res = pick(im32 < lb32, iml32, im32)
		}
	} else {
		iml32 := uint32(i + mbar + l)
		b32 := uint32(b)
		if M == 0 || IM&car != 0 {
			res = pick(im32 < b32, iml32, im32)
		} else {
			res = pick(im32 < b32, im32, iml32)
		}
	}
	return res
}

func pick(c bool, a, b uint32) uint32 {
	if c {
		return a
	}
	return b
}

func (m *Machine) ashiftrt(val uint64, cnt, size int) uint64 {
	realCnt := cnt
	if realCnt > size {
		realCnt = size
	}
	sgn := ^(((val & 0xffffffffff) >> uint(size-1)) - 1)
	sgncnt := size - realCnt
	if sgncnt > 16 {
		sgn <<= 16
		sgncnt -= 16
	}
	sgn <<= uint(sgncnt)
	if realCnt > 16 {
		val >>= 16
		realCnt -= 16
	}
	val >>= uint(realCnt)
	val |= sgn
	m.setFlag(ASTAT_AN, val>>uint(size-1) != 0)
	m.setFlag(ASTAT_AZ, val == 0)
	if size != 40 {
		m.setFlag(ASTAT_V, false)
	}
	return val
}

func (m *Machine) lshiftrt(val uint64, cnt, size int) uint64 {
	realCnt := cnt
	if realCnt > size {
		realCnt = size
	}
	if realCnt > 16 {
		val >>= 16
		realCnt -= 16
	}
	val >>= uint(realCnt)
	val &= sizeMask(size)
	m.setFlag(ASTAT_AN, val>>uint(size-1) != 0)
	m.setFlag(ASTAT_AZ, val == 0)
	if size != 40 {
		m.setFlag(ASTAT_V, false)
	}
	return val
}

func sizeMask(size int) uint64 {
	switch size {
	case 16:
		return 0xffff
	case 32:
		return 0xffffffff
	}
	return 0xffffffffff
}

func (m *Machine) lshift(val uint64, cnt, size int, saturate, overflow bool) uint64 {
	realCnt := cnt
	if realCnt > size {
		realCnt = size
	}
	sgn := ^((val >> uint(size-1)) - 1)
	maskCnt := uint(size - 1)
	mask := ^uint64(0) << maskCnt
	sgn <<= maskCnt
	newVal := val
	if realCnt > 16 {
		newVal <<= 16
		realCnt -= 16
	}
	newVal <<= uint(realCnt)
	masked := newVal & mask

	// saturation also has to notice sign information shifted out the top
	vi := true
	if hi := (val << uint(cnt)) >> uint(size); hi == 0 ||
		(hi == uint64(^(^uint32(0)<<uint(cnt))) && (newVal>>uint(size-1))&1 != 0) {
		vi = false
	}

	switch size {
	case 16:
		newVal &= 0xffff
		if saturate && (vi || (val>>uint(size-1)) != (newVal>>uint(size-1))) {
			if val>>uint(size-1) == 0 {
				newVal = 0x7fff
			} else {
				newVal = 0x8000
			}
			vi = true
		}
	case 32:
		newVal &= 0xffffffff
		masked &= 0xffffffff
		sgn &= 0xffffffff
		if saturate && (vi || sgn != masked || (sgn == 0 && newVal == 0 && val != 0)) {
			if sgn == 0 {
				newVal = 0x7fffffff
			} else {
				newVal = 0x80000000
			}
			vi = true
		}
	case 40:
		newVal &= 0xffffffffff
	}

	m.setFlag(ASTAT_AN, newVal>>uint(size-1) != 0)
	m.setFlag(ASTAT_AZ, newVal == 0)
	if size != 40 {
		m.setFlag(ASTAT_V, overflow && vi)
		if overflow && vi {
			m.setFlag(ASTAT_VS, true)
		}
	}
	return newVal
}

func algn(l, h, aln uint32) uint32 {
	if aln == 0 {
		return l
	}
	return l>>(8*aln) | h<<(32-8*aln)
}

func saturateS16(val uint64, overflow *bool) uint32 {
	if int64(val) < -0x8000 {
		setTrue(overflow)
		return 0x8000
	}
	if int64(val) > 0x7fff {
		setTrue(overflow)
		return 0x7fff
	}
	return uint32(val & 0xffff)
}

func saturateS32(val uint64, overflow *bool) uint32 {
	if int64(val) < -0x80000000 {
		setTrue(overflow)
		return 0x80000000
	}
	if int64(val) > 0x7fffffff {
		setTrue(overflow)
		return 0x7fffffff
	}
	return uint32(val)
}

func saturateU32(val uint64, overflow *bool) uint32 {
	if val > 0xffffffff {
		setTrue(overflow)
		return 0xffffffff
	}
	return uint32(val)
}

func saturateU16(val uint64, overflow *bool) uint32 {
	if val > 0xffff {
		setTrue(overflow)
		return 0xffff
	}
	return uint32(val)
}

// saturateS40 clamps to the 40-bit accumulator range and reports overflow.
func saturateS40(val uint64) (uint64, bool) {
	lim := int64(1) << 39
	if int64(val) < -lim {
		return uint64(-lim), true
	} else if int64(val) > lim-1 {
		return uint64(lim - 1), true
	}
	return val, false
}

func setTrue(p *bool) {
	if p != nil {
		*p = true
	}
}

func rot40(val uint64, shift int, cc *uint32) uint64 {
	const nbits = 40
	shift = clamp(shift, -nbits, nbits)
	if shift == 0 {
		return val
	}
	if shift < 0 {
		shift += nbits + 1
	}
	var ret uint64
	if shift != nbits {
		ret = val << uint(shift)
	}
	if shift != 1 {
		ret |= val >> uint(nbits+1-shift)
	}
	ret |= uint64(*cc) << uint(shift-1)
	*cc = uint32(val>>uint(nbits-shift)) & 1
	return ret
}

func rot32(val uint32, shift int, cc *uint32) uint32 {
	const nbits = 32
	shift = clamp(shift, -nbits, nbits)
	if shift == 0 {
		return val
	}
	if shift < 0 {
		shift += nbits + 1
	}
	var ret uint32
	if shift != nbits {
		ret = val << uint(shift)
	}
	if shift != 1 {
		ret |= val >> uint(nbits+1-shift)
	}
	ret |= *cc << uint(shift-1)
	*cc = (val >> uint(nbits-shift)) & 1
	return ret
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *Machine) add32(a, b uint32, carry, sat bool) uint32 {
	flgs := a >> 31
	flgo := b >> 31
	v := a + b
	flgn := v >> 31
	overflow := (flgs^flgn)&(flgo^flgn) != 0
	if sat && overflow {
		v = 1 << 31
		if flgn != 0 {
			v--
		}
		flgn = v >> 31
	}
	m.setFlag(ASTAT_AN, flgn != 0)
	if overflow {
		m.setFlag(ASTAT_VS, true)
	}
	m.setFlag(ASTAT_V, overflow)
	m.vInternal = m.vInternal || overflow
	m.setFlag(ASTAT_AZ, v == 0)
	if carry {
		m.setFlag(ASTAT_AC0, ^a < b)
	}
	return v
}

// sub32 in parallel mode only sets flags that become true, so the two
// halves of a dual operation combine.
func (m *Machine) sub32(a, b uint32, carry, sat, parallel bool) uint32 {
	flgs := a >> 31
	flgo := b >> 31
	v := a - b
	flgn := v >> 31
	overflow := (flgs^flgo)&(flgn^flgs) != 0
	if sat && overflow {
		v = 1 << 31
		if flgn != 0 {
			v--
		}
		flgn = v >> 31
	}
	if !parallel || flgn != 0 {
		m.setFlag(ASTAT_AN, flgn != 0)
	}
	if overflow {
		m.setFlag(ASTAT_VS, true)
	}
	if !parallel || overflow {
		m.setFlag(ASTAT_V, overflow)
		m.vInternal = m.vInternal || overflow
	}
	if !parallel || v == 0 {
		m.setFlag(ASTAT_AZ, v == 0)
	}
	if carry && (!parallel || b <= a) {
		m.setFlag(ASTAT_AC0, b <= a)
	}
	return v
}

// flags16 accumulates the flags of one or more 16-bit lane operations.
type flags16 struct {
	carry, overflow, zero, neg bool
}

// add16 scale: 0 none, 2 ASR, 3 ASL.
func add16(a, b uint16, f *flags16, sat bool, scale int) uint32 {
	flgs := int(a>>15) & 1
	flgo := int(b>>15) & 1
	v := int64(int16(a)) + int64(int16(b))
	switch scale {
	case 2:
		v = int64(a>>1) + int64(a&0x8000) + int64(b>>1) + int64(b&0x8000) + (int64(a&1)+int64(b&1))>>1
		v |= -(v & 0x8000)
	case 3:
		v <<= 1
	}
	flgn := int(v>>15) & 1
	overflow := (flgs^flgn)&(flgo^flgn) != 0
	if v > 0xffff {
		overflow = true
	}
	if sat {
		v = int64(saturateS16(uint64(v), nil))
	}
	f.neg = f.neg || (v>>15)&1 != 0
	f.overflow = f.overflow || overflow
	f.zero = f.zero || v&0xffff == 0
	f.carry = f.carry || ^a < b
	return uint32(v) & 0xffff
}

func sub16(a, b uint16, f *flags16, sat bool, scale int) uint32 {
	flgs := int(a>>15) & 1
	flgo := int(b>>15) & 1
	v := int64(int16(a)) - int64(int16(b))
	flgn := int(v>>15) & 1
	overflow := (flgs^flgo)&(flgn^flgs) != 0
	switch scale {
	case 2:
		if sat {
			v = (int64(a>>1) + int64(a&0x8000)) - (int64(b>>1) + int64(b&0x8000)) + (int64(a&1) - int64(b&1))
		} else {
			v = (v & 0xffff) >> 1
			s, o, n := flgs != 0, flgo != 0, flgn != 0
			if (!s && !o && n) || (s && !o && !n) || (s && o && n) || (s && !o && n) {
				v |= 0x8000
			}
		}
		v |= -(v & 0x8000)
		flgn = int(v>>15) & 1
		overflow = (flgs^flgo)&(flgn^flgs) != 0
	case 3:
		v <<= 1
		if v > 0x7fff || v < -0xffff {
			overflow = true
		}
	}
	if sat {
		v = int64(saturateS16(uint64(v), nil))
	}
	f.neg = f.neg || (v>>15)&1 != 0
	f.zero = f.zero || v&0xffff == 0
	f.overflow = f.overflow || overflow
	f.carry = f.carry || b <= a
	return uint32(v)
}

func (m *Machine) min32(a, b uint32) uint32 {
	val := a
	if int32(a) > int32(b) {
		val = b
	}
	m.setNZ(val)
	m.setFlag(ASTAT_V, false)
	return val
}

func (m *Machine) max32(a, b uint32) uint32 {
	val := a
	if int32(a) < int32(b) {
		val = b
	}
	m.setNZ(val)
	m.setFlag(ASTAT_V, false)
	return val
}

func (m *Machine) min2x16(a, b uint32) uint32 {
	val := a
	if int16(a) > int16(b) {
		val = hl(val, b)
	}
	if int16(a>>16) > int16(b>>16) {
		val = hl(b, val)
	}
	m.setNZ2x16(val)
	m.setFlag(ASTAT_V, false)
	return val
}

func (m *Machine) max2x16(a, b uint32) uint32 {
	val := a
	if int16(a) < int16(b) {
		val = hl(val, b)
	}
	if int16(a>>16) < int16(b>>16) {
		val = hl(b, val)
	}
	m.setNZ2x16(val)
	m.setFlag(ASTAT_V, false)
	return val
}

func (m *Machine) addAndShift(a, b uint32, shift int) uint32 {
	m.vInternal = false
	v := m.add32(a, b, false, false)
	for ; shift > 0; shift-- {
		x := (v >> 30) & 3
		if x == 1 || x == 2 {
			m.vInternal = true
		}
		v <<= 1
	}
	m.setFlag(ASTAT_AZ, v == 0)
	m.setFlag(ASTAT_AN, v&0x80000000 != 0)
	m.setFlag(ASTAT_V, m.vInternal)
	if m.vInternal {
		m.setFlag(ASTAT_VS, true)
	}
	return v
}

func xorReduce(acc0, acc1 uint64) uint32 {
	var v uint32
	for i := 0; i < 40; i++ {
		v ^= uint32(acc0 & acc1 & 1)
		acc0 >>= 1
		acc1 >>= 1
	}
	return v
}

// divs sets AQ from the signs of dividend and divisor and shifts it into the quotient.
func (m *Machine) divs(pquo uint32, divisor uint16) uint32 {
	r := uint16(pquo >> 16)
	aq := (r ^ divisor) >> 15
	m.setFlag(ASTAT_AQ, aq != 0)
	pquo = pquo<<1 | uint32(aq)
	return pquo&0x1ffff | uint32(r)<<17
}

// divq performs one non-restoring division step.
func (m *Machine) divq(pquo uint32, divisor uint16) uint32 {
	af := uint16(pquo >> 16)
	var r uint16
	if m.flag(ASTAT_AQ) {
		r = divisor + af
	} else {
		r = af - divisor
	}
	aq := (r ^ divisor) >> 15
	m.setFlag(ASTAT_AQ, aq != 0)
	pquo = pquo<<1 | uint32(aq^1)
	return pquo&0x1ffff | uint32(r)<<17
}

func ones(val uint32) uint32 {
	var n uint32
	for ; val != 0; val &= val - 1 {
		n++
	}
	return n
}

// rnd16 rounds half up, breaking ties on bit 16, and shifts down 16 bits
// keeping the top 16 sign bits.
func rnd16(val uint64) uint64 {
	if val&0xffff > 0x8000 || (val&0xffff == 0x8000 && val&0x10000 != 0) {
		val += 0x8000
	}
	sgnbits := val & 0xffff000000000000
	return val>>16 | sgnbits
}

func trunc16(val uint64) uint64 {
	sgnbits := val & 0xffff000000000000
	return val>>16 | sgnbits
}

// signbits counts the redundant sign bits below the sign bit.
func signbits(val uint64, size int) int {
	mask := uint64(1) << uint(size-1)
	bit := val & mask
	count := 0
	for {
		mask >>= 1
		bit >>= 1
		if mask == 0 || val&mask != bit {
			break
		}
		count++
	}
	if size == 40 {
		count -= 8
	}
	return count
}
