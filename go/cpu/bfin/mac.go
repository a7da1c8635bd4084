package bfin

// Multiplier option modes.
const (
	M_S2RND = 1
	M_T     = 2
	M_W32   = 3
	M_FU    = 4
	M_TFU   = 6
	M_IS    = 8
	M_ISS2  = 9
	M_IH    = 11
	M_IU    = 12
)

var macmodNames = map[int]string{
	M_S2RND: "S2RND", M_T: "T", M_W32: "W32", M_FU: "FU", M_TFU: "TFU",
	M_IS: "IS", M_ISS2: "ISS2", M_IH: "IH", M_IU: "IU",
}

func isMacmodPmove(x int) bool {
	switch x {
	case 0, M_IS, M_FU, M_S2RND, M_ISS2, M_IU:
		return true
	}
	return false
}

func isMacmodHmove(x int) bool {
	switch x {
	case 0, M_IS, M_FU, M_IU, M_T, M_TFU, M_S2RND, M_ISS2, M_IH:
		return true
	}
	return false
}

func isMacmodSigned(x int) bool {
	switch x {
	case 0, M_IS, M_T, M_S2RND, M_ISS2, M_IH, M_W32:
		return true
	}
	return false
}

// multFunc multiplies halves of two data registers, extending the product to
// 64 bits. sat reports the single fractional overflow case 0x8000*0x8000.
// mmod must already be known to be a multiplier mode.
func (m *Machine) multFunc(h0, h1 bool, src0, src1, mmod int, MM bool) (val1 uint64, sat bool) {
	s0, s1 := m.Regs.D(src0), m.Regs.D(src1)
	if h0 {
		s0 >>= 16
	}
	if h1 {
		s1 >>= 16
	}
	s0 &= 0xffff
	s1 &= 0xffff
	sgn0 := -(s0 & 0x8000)
	sgn1 := -(s1 & 0x8000)

	if MM {
		s0 |= sgn0
	} else {
		switch mmod {
		case 0, M_S2RND, M_T, M_IS, M_ISS2, M_IH, M_W32:
			s0 |= sgn0
			s1 |= sgn1
		}
	}

	val := s0 * s1
	if !MM && (mmod == 0 || mmod == M_T || mmod == M_S2RND || mmod == M_W32) {
		if val == 0x40000000 {
			if mmod == M_W32 {
				val = 0x7fffffff
			} else {
				val = 0x80000000
			}
			sat = true
		} else {
			val <<= 1
		}
	}
	val1 = uint64(val)
	if isMacmodSigned(mmod) || MM {
		val1 |= -(val1 & 0x80000000)
	}
	if sat {
		val1 &= 0xffffffff
	}
	return val1, sat
}

// extractMult narrows a 64-bit product or accumulator to a 16 or 32 bit result.
func extractMult(res uint64, mmod int, MM, fullword bool, overflow *bool) (uint32, error) {
	if fullword {
		switch mmod {
		case 0, M_IS:
			return saturateS32(res, overflow), nil
		case M_IU, M_FU:
			if MM {
				return saturateS32(res, overflow), nil
			}
			return saturateU32(res, overflow), nil
		case M_S2RND, M_ISS2:
			return saturateS32(res<<1, overflow), nil
		}
		return 0, errIllegal()
	}
	switch mmod {
	case 0, M_W32, M_IH:
		return saturateS16(rnd16(res), overflow), nil
	case M_IS:
		return saturateS16(res, overflow), nil
	case M_FU:
		if MM {
			return saturateS16(rnd16(res), overflow), nil
		}
		return saturateU16(rnd16(res), overflow), nil
	case M_IU:
		if MM {
			return saturateS16(res, overflow), nil
		}
		return saturateU16(res, overflow), nil
	case M_T:
		return saturateS16(trunc16(res), overflow), nil
	case M_TFU:
		if MM {
			return saturateS16(trunc16(res), overflow), nil
		}
		return saturateU16(trunc16(res), overflow), nil
	case M_S2RND:
		return saturateS16(rnd16(res<<1), overflow), nil
	case M_ISS2:
		return saturateS16(res<<1, overflow), nil
	}
	return 0, errIllegal()
}

// macFunc runs one MAC unit: multiply, accumulate into A<which> with the
// mode's saturation, then extract the register result. Accumulator and
// AV flag updates are queued.
func (m *Machine) macFunc(which, op int, h0, h1 bool, src0, src1, mmod int, MM, fullword bool, overflow, neg *bool) (uint32, error) {
	var acc uint64
	if isMacmodSigned(mmod) || MM {
		acc = m.Regs.ExtendedAcc(which)
	} else {
		acc = m.Regs.UnextendedAcc(which)
	}

	if op != 3 {
		sgn40 := (acc>>39)&1 != 0
		res, tsat := m.multFunc(h0, h1, src0, src1, mmod, MM)
		switch op {
		case 0:
			acc = res
		case 1:
			acc += res
		case 2:
			acc -= res
		}

		const max40, min40 = 0x7fffffffff, ^uint64(0x7fffffffff)
		nosatAcc := acc
		sat := false
		switch mmod {
		case 0, M_T, M_IS, M_ISS2, M_S2RND:
			if int64(acc) < -(1 << 39) {
				acc, sat = min40, true
			} else if int64(acc) > max40 {
				acc, sat = max40, true
			}
		case M_TFU:
			if MM {
				if int64(acc) < -(1 << 39) {
					acc, sat = min40, true
				}
				if int64(acc) > max40 {
					acc, sat = max40, true
				}
			} else {
				if int64(acc) < 0 {
					acc, sat = 0, true
				}
				if int64(acc) > 0xffffffffff {
					acc, sat = 0xffffffffff, true
				}
			}
		case M_IU:
			if !MM && acc&0x8000000000000000 != 0 {
				acc, sat = 0, true
			}
			if !MM && acc > 0xffffffffff {
				acc, sat = 0xffffffffff, true
			}
			if MM && acc > 0xffffffffff {
				acc &= 0xffffffffff
			}
			if acc&0x8000000000 != 0 {
				acc |= 0xffffff0000000000
			}
		case M_FU:
			if MM {
				if int64(acc) < -(1 << 39) {
					acc, sat = min40, true
				}
				if int64(acc) > max40 {
					acc, sat = max40, true
				} else if acc&0x8000000000 != 0 {
					acc |= 0xffffff0000000000
				}
			} else {
				if int64(acc) < 0 {
					acc, sat = 0, true
				} else if int64(acc) > 0xffffffffff {
					acc, sat = 0xffffffffff, true
				}
			}
		case M_IH:
			if int64(acc) < -0x80000000 {
				acc, sat = 0xffffffff80000000, true
			} else if int64(acc) > 0x7fffffff {
				acc, sat = 0x7fffffff, true
			}
		case M_W32:
			if sgn40 && acc>>31 != 0x1ffffffff && acc>>31 != 0 {
				acc, sat = 0x80000000, true
			}
			if !sat && !sgn40 && acc>>31 != 0 && acc>>31 != 0x1ffffffff {
				acc, sat = 0x7fffffff, true
			}
			acc &= 0xffffffff
			if acc&0x80000000 != 0 {
				acc |= 0xffffffff00000000
			}
			if tsat {
				sat = true
			}
		default:
			return 0, errIllegal()
		}

		if acc&0x8000000000 != 0 {
			*neg = true
		}
		m.wb(REG_A0X+which*2, uint32(acc>>32)&0xff)
		m.wb(REG_A0W+which*2, uint32(acc))
		m.setFlag(astatAV[which], sat)
		if sat {
			m.setFlag(astatAVS[which], true)
			if fullword {
				*overflow = true
			} else if _, err := extractMult(nosatAcc, mmod, MM, fullword, overflow); err != nil {
				return 0, err
			}
		}
	}

	ret, err := extractMult(acc, mmod, MM, fullword, overflow)
	if err != nil {
		return 0, err
	}
	if fullword {
		if ret&0x80000000 != 0 {
			*neg = true
		}
	} else if ret&0x8000 != 0 {
		*neg = true
	}
	return ret, nil
}
