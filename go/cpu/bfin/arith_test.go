package bfin

import (
	"testing"
)

func TestAdd32SaturatePositive(t *testing.T) {
	m := &Machine{}
	if v := m.add32(0x7fffffff, 1, true, true); v != 0x7fffffff {
		t.Fatalf("got %#x", v)
	}
	if !m.flag(ASTAT_V) || !m.flag(ASTAT_VS) || !m.flag(ASTAT_V_COPY) || m.flag(ASTAT_AN) || m.flag(ASTAT_AC0) {
		t.Fatalf("ASTAT = %#x", m.astat)
	}
}

func TestAdd32SaturateNegative(t *testing.T) {
	m := &Machine{}
	if v := m.add32(0x80000000, 0xffffffff, true, true); v != 0x80000000 {
		t.Fatalf("got %#x", v)
	}
	if !m.flag(ASTAT_V) || !m.flag(ASTAT_AN) || !m.flag(ASTAT_AC0) || !m.flag(ASTAT_AC0_COPY) {
		t.Fatalf("ASTAT = %#x", m.astat)
	}
}

func TestAdd32Wrap(t *testing.T) {
	m := &Machine{}
	if v := m.add32(0x7fffffff, 1, true, false); v != 0x80000000 {
		t.Fatalf("got %#x", v)
	}
	if !m.flag(ASTAT_V) || !m.flag(ASTAT_AN) {
		t.Fatalf("ASTAT = %#x", m.astat)
	}
	// V clears on the next result, VS stays
	m.add32(1, 1, true, false)
	if m.flag(ASTAT_V) || !m.flag(ASTAT_VS) {
		t.Fatalf("ASTAT = %#x", m.astat)
	}
}

func TestSub32Parallel(t *testing.T) {
	m := &Machine{}
	m.setFlag(ASTAT_AZ, true)
	m.sub32(5, 3, true, false, true)
	if !m.flag(ASTAT_AZ) || !m.flag(ASTAT_AC0) {
		t.Fatalf("parallel subtract cleared a flag: %#x", m.astat)
	}
	m.sub32(3, 3, true, false, false)
	if !m.flag(ASTAT_AZ) || m.flag(ASTAT_AN) {
		t.Fatalf("ASTAT = %#x", m.astat)
	}
}

func TestSaturate(t *testing.T) {
	var ov bool
	if v := saturateS16(0x8000, &ov); v != 0x7fff || !ov {
		t.Errorf("saturateS16(0x8000) = %#x, %v", v, ov)
	}
	ov = false
	if v := saturateS16(uint64(^uint64(0x8000)), &ov); v != 0x8000 || !ov {
		t.Errorf("saturateS16(-0x8001) = %#x, %v", v, ov)
	}
	ov = false
	if v := saturateS16(uint64(^uint64(0)), &ov); v != 0xffff || ov {
		t.Errorf("saturateS16(-1) = %#x, %v", v, ov)
	}
	if v := saturateS32(1<<31, nil); v != 0x7fffffff {
		t.Errorf("saturateS32(1<<31) = %#x", v)
	}
	if v := saturateU16(0x10000, nil); v != 0xffff {
		t.Errorf("saturateU16 = %#x", v)
	}
	if v, ov := saturateS40(1 << 39); v != 1<<39-1 || !ov {
		t.Errorf("saturateS40(1<<39) = %#x, %v", v, ov)
	}
	neg := -int64(1) << 39
	if v, ov := saturateS40(uint64(neg)); v != uint64(neg) || ov {
		t.Errorf("saturateS40(-1<<39) = %#x, %v", v, ov)
	}
}

func TestAdd16Flags(t *testing.T) {
	var f flags16
	if v := add16(0x7fff, 1, &f, true, 0); v != 0x7fff || !f.overflow {
		t.Fatalf("got %#x %+v", v, f)
	}
	f = flags16{}
	if v := add16(0xffff, 1, &f, false, 0); v != 0 || !f.zero || !f.carry || f.overflow {
		t.Fatalf("got %#x %+v", v, f)
	}
	f = flags16{}
	if v := sub16(0, 1, &f, false, 0); v&0xffff != 0xffff || !f.neg || f.carry {
		t.Fatalf("got %#x %+v", v, f)
	}
}

func TestRot32(t *testing.T) {
	var cc uint32
	v := rot32(0x80000001, 1, &cc)
	if v != 2 || cc != 1 {
		t.Fatalf("rot left: %#x cc=%d", v, cc)
	}
	v = rot32(v, -1, &cc)
	if v != 0x80000001 || cc != 0 {
		t.Fatalf("rot right: %#x cc=%d", v, cc)
	}
	if v := rot32(0x1234, 0, &cc); v != 0x1234 || cc != 0 {
		t.Fatalf("zero rotate changed state")
	}
}

func TestRot40(t *testing.T) {
	cc := uint32(1)
	v := rot40(0x8000000000, 1, &cc)
	if v&mask40 != 1 || cc != 1 {
		t.Fatalf("got %#x cc=%d", v, cc)
	}
}

func TestShifts(t *testing.T) {
	m := &Machine{}
	if v := m.ashiftrt(0x8000, 4, 16) & 0xffff; v != 0xf800 || !m.flag(ASTAT_AN) {
		t.Errorf("ashiftrt = %#x", v)
	}
	if v := m.lshiftrt(0x8000, 4, 16); v != 0x0800 || m.flag(ASTAT_AN) {
		t.Errorf("lshiftrt = %#x", v)
	}
	if v := m.lshift(0x4000, 1, 16, true, true); v != 0x7fff || !m.flag(ASTAT_V) {
		t.Errorf("saturating lshift = %#x", v)
	}
	if v := m.lshift(0x1, 31, 32, false, true); v != 0x80000000 || !m.flag(ASTAT_AN) {
		t.Errorf("lshift = %#x", v)
	}
}

func TestShiftMag(t *testing.T) {
	tests := map[uint32]int{0: 0, 5: 5, 0x3f: -1, 0x20: -32, 0x1f: 31, 0xffffff05: 5}
	for in, want := range tests {
		if got := shiftMag(in); got != want {
			t.Errorf("shiftMag(%#x) = %d, want %d", in, got, want)
		}
	}
}

func TestSignbits(t *testing.T) {
	tests := []struct {
		val  uint64
		size int
		want int
	}{
		{1, 32, 30},
		{0xffffffff, 32, 31},
		{0, 16, 15},
		{0x4000, 16, 0},
		{0xc000, 16, 1},
		{0xff80000000, 40, 0},
	}
	for _, tt := range tests {
		if got := signbits(tt.val, tt.size); got != tt.want {
			t.Errorf("signbits(%#x, %d) = %d, want %d", tt.val, tt.size, got, tt.want)
		}
	}
}

func TestRnd16(t *testing.T) {
	tests := map[uint64]uint64{0x8000: 0, 0x18000: 2, 0x8001: 1, 0x7fff: 0}
	for in, want := range tests {
		if got := rnd16(in); got != want {
			t.Errorf("rnd16(%#x) = %#x, want %#x", in, got, want)
		}
	}
}

func TestOnes(t *testing.T) {
	if n := ones(0xf0f0000f); n != 12 {
		t.Fatalf("ones = %d", n)
	}
}

func TestSgnExtend40(t *testing.T) {
	if v := sgnExtend40(0x8000000000, 0x10); v != 0xfffffffffffffff0 {
		t.Errorf("negative = %#x", v)
	}
	if v := sgnExtend40(0, 0xffffffffff); v != 0x7fffffffff {
		t.Errorf("positive = %#x", v)
	}
}

func TestDagAddCircular(t *testing.T) {
	var r RegFile
	r.R[REG_I0] = 0x1008
	r.R[REG_B0] = 0x1000
	r.R[REG_L0] = 0x10
	if v := r.dagadd(0, 8); v != 0x1000 {
		t.Errorf("wrap forward = %#x", v)
	}
	if v := r.dagsub(0, 0xc); v != 0x100c {
		t.Errorf("wrap backward = %#x", v)
	}
	r.R[REG_L0] = 0
	if v := r.dagadd(0, 8); v != 0x1010 {
		t.Errorf("linear = %#x", v)
	}
}

func TestAddBrev(t *testing.T) {
	// bit reversed increment of 0 by the top bit
	if v := addBrev(0x80000000, 0x80000000); v != 0x40000000 {
		t.Fatalf("got %#x", v)
	}
}
