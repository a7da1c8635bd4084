package mmu

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/devices"
)

func enabled() *MMU {
	m := New(true, nil)
	m.D.Control |= ENCPLB
	m.I.Control |= ENCPLB
	return m
}

func TestCheckAddressValid(t *testing.T) {
	m := enabled()
	m.D.CPLB[0] = CPLB{Addr: 0, Data: CPLB_VALID | CPLB_USER_RD | CPLB_USER_WR | CPLB_SUPV_WR | 0x20000}
	for _, a := range []Access{
		{Addr: 0x1000, Size: 4},
		{Addr: 0x1000, Size: 4, Write: true},
		{Addr: 0xffffc, Size: 4, Write: true, Supv: true},
		{Addr: 0x2001, Size: 1},
	} {
		if f := m.CheckAddress(a); !f.OK() {
			t.Errorf("%+v: %s", a, f)
		}
	}
	// the entry is 1M, so this misses
	if f := m.CheckAddress(Access{Addr: 0x100000, Size: 4}); f.Kind != Miss || f.Excause != cec.VEC_CPLB_M {
		t.Fatalf("expected miss, got %s", f)
	}
	if m.D.Fault.Addr != 0x100000 || m.D.Fault.Status&(1<<19) == 0 {
		t.Fatalf("bad fault latch %#x %#x", m.D.Fault.Status, m.D.Fault.Addr)
	}
}

func TestCheckAddressMultiHit(t *testing.T) {
	m := enabled()
	m.D.CPLB[2] = CPLB{Addr: 0x4000, Data: CPLB_VALID | CPLB_USER_RD}
	m.D.CPLB[5] = CPLB{Addr: 0x4000, Data: CPLB_VALID | 0x10000}
	for _, supv := range []bool{false, true} {
		f := m.CheckAddress(Access{Addr: 0x4010, Size: 4, Supv: supv, PC: 0x1234})
		if f.Kind != MultiHit || f.Excause != cec.VEC_CPLB_MHIT {
			t.Fatalf("supv=%v: expected multi-hit, got %s", supv, f)
		}
	}
	if m.D.Fault.Status&0xffff != 1<<2|1<<5 {
		t.Fatalf("hit mask = %#x", m.D.Fault.Status)
	}
	if m.I.Fault.Addr != 0x1234 || m.I.Fault.Status != 1<<17 {
		t.Fatalf("instruction latch not updated: %+v", m.I.Fault)
	}
}

func TestCheckAddressViolation(t *testing.T) {
	m := enabled()
	m.D.CPLB[0] = CPLB{Addr: 0x8000, Data: CPLB_VALID | CPLB_USER_RD}
	f := m.CheckAddress(Access{Addr: 0x8000, Size: 2, Write: true})
	if f.Kind != Violation || f.Excause != cec.VEC_CPLB_VL {
		t.Fatalf("expected violation, got %s", f)
	}
	if m.D.Fault.Status != 1<<16|1 {
		t.Fatalf("status = %#x", m.D.Fault.Status)
	}
	// write-back cacheable but clean pages fault on write
	m.D.CPLB[0].Data = CPLB_VALID | CPLB_SUPV_WR | CPLB_L1_CHBL
	if f := m.CheckAddress(Access{Addr: 0x8000, Size: 4, Write: true, Supv: true}); f.Kind != Violation {
		t.Fatalf("expected dirty violation, got %s", f)
	}
	m.D.CPLB[0].Data |= CPLB_DIRTY
	if f := m.CheckAddress(Access{Addr: 0x8000, Size: 4, Write: true, Supv: true}); !f.OK() {
		t.Fatalf("dirty page: %s", f)
	}
}

func TestCheckAddressMisalignedFirst(t *testing.T) {
	m := enabled()
	m.D.CPLB[0] = CPLB{Addr: 0x8000, Data: CPLB_VALID}
	m.D.CPLB[1] = CPLB{Addr: 0x8000, Data: CPLB_VALID}
	f := m.CheckAddress(Access{Addr: 0x8002, Size: 4, Write: true})
	if f.Kind != Misaligned || f.Excause != cec.VEC_MISALI_D {
		t.Fatalf("expected misaligned, got %s", f)
	}
	f = m.CheckAddress(Access{Addr: 0xffa00001, Size: 2, Inst: true})
	if f.Kind != Misaligned || f.Excause != cec.VEC_MISALI_I {
		t.Fatalf("expected inst misaligned, got %s", f)
	}
}

func TestImplicitMMR(t *testing.T) {
	m := New(true, nil)
	user := Access{Addr: 0xffc00204, Size: 4, Write: true}
	if f := m.CheckAddress(user); f.Kind != Violation {
		t.Fatalf("user MMR write: %s", f)
	}
	user.Supv = true
	if f := m.CheckAddress(user); !f.OK() {
		t.Fatalf("supervisor MMR write: %s", f)
	}
	user.DAG1 = true
	if f := m.CheckAddress(user); f.Kind != Violation {
		t.Fatalf("DAG1 MMR write: %s", f)
	}
	if f := m.CheckAddress(Access{Addr: 0xffe00000, Size: 2, Inst: true, Supv: true}); f.Kind != Miss || f.Excause != cec.VEC_CPLB_I_M {
		t.Fatalf("MMR fetch: %s", f)
	}
}

func TestImplicitL1(t *testing.T) {
	m := New(true, nil)
	if f := m.CheckAddress(Access{Addr: 0xff800000, Size: 4, Inst: true, Supv: true}); f.Kind != Violation {
		t.Fatalf("fetch from L1 data: %s", f)
	}
	if f := m.CheckAddress(Access{Addr: 0xffa00000, Size: 4, Inst: true}); !f.OK() {
		t.Fatalf("fetch from L1 inst: %s", f)
	}
	if f := m.CheckAddress(Access{Addr: 0xffa00000, Size: 4}); f.Kind != HwErrMiss {
		t.Fatalf("data read of L1 inst: %s", f)
	}
}

func TestNonOSMode(t *testing.T) {
	m := New(false, nil)
	m.D.Control |= ENCPLB
	if f := m.CheckAddress(Access{Addr: 0x100, Size: 4}); !f.OK() {
		t.Fatalf("plain access: %s", f)
	}
	if f := m.CheckAddress(Access{Addr: 0xffc00000, Size: 4, Write: true}); f.Kind != IllRes || f.Excause != cec.VEC_ILL_RES {
		t.Fatalf("user MMR write: %s", f)
	}
	if f := m.CheckAddress(Access{Addr: 0xff800000, Size: 4, Inst: true}); f.Kind != HwErrMiss {
		t.Fatalf("fetch from L1 data: %s", f)
	}
	if f := m.CheckAddress(Access{Addr: 0x101, Size: 2}); f.Kind != Misaligned {
		t.Fatalf("misaligned: %s", f)
	}
	if m.D.Fault != (Latch{}) {
		t.Fatalf("latch written outside OS mode: %+v", m.D.Fault)
	}
}

func TestCheckCacheAddr(t *testing.T) {
	m := enabled()
	if f := m.CheckCacheAddr(Access{Addr: 0x1234}); !f.OK() {
		t.Fatalf("miss should be suppressed: %s", f)
	}
	m.I.CPLB[0] = CPLB{Addr: 0x1000, Data: CPLB_VALID}
	if f := m.CheckCacheAddr(Access{Addr: 0x1234, Inst: true}); !f.OK() {
		t.Fatalf("inst violation should be suppressed: %s", f)
	}
	m.D.CPLB[0] = CPLB{Addr: 0x1000, Data: CPLB_VALID}
	f := m.CheckCacheAddr(Access{Addr: 0x1234})
	if f.Kind != Violation || f.Addr != 0x1220 {
		t.Fatalf("data violation: %s", f)
	}
}

func TestMMRBlock(t *testing.T) {
	m := New(true, nil)
	var bus devices.Bus
	for _, d := range m.Devices() {
		if err := bus.Attach(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := bus.Write(DMemBase+CPLB_ADDR0+4, 4, 0x4000); err != nil {
		t.Fatal(err)
	}
	if err := bus.Write(DMemBase+CPLB_DATA0+4, 4, CPLB_VALID); err != nil {
		t.Fatal(err)
	}
	if m.D.CPLB[1] != (CPLB{Addr: 0x4000, Data: CPLB_VALID}) {
		t.Fatalf("cplb 1 = %+v", m.D.CPLB[1])
	}
	bus.Write(DMemBase+SRAM_BASE_ADDRESS, 4, 0)
	if v, _ := bus.Read(DMemBase+SRAM_BASE_ADDRESS, 4); v != 0xff800000 {
		t.Fatalf("SRAM_BASE_ADDRESS = %#x", v)
	}
	if _, err := bus.Read(IMemBase+MEM_CONTROL, 2); errors.Cause(err) != devices.ErrInvalidMMR {
		t.Fatalf("16-bit read: %v", err)
	}
	if err := bus.Write(IMemBase+0x10, 4, 0); errors.Cause(err) != devices.ErrInvalidMMR {
		t.Fatalf("hole write: %v", err)
	}

	// disabling protection is seen by the very next check
	bus.Write(DMemBase+MEM_CONTROL, 4, ENCPLB)
	a := Access{Addr: 0x100, Size: 4, Supv: true}
	if f := m.CheckAddress(a); f.Kind != Miss {
		t.Fatalf("enabled: %s", f)
	}
	bus.Write(DMemBase+MEM_CONTROL, 4, 0)
	if f := m.CheckAddress(a); !f.OK() {
		t.Fatalf("disabled: %s", f)
	}
}
