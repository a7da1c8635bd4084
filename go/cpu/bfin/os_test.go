package bfin

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/cpu/bfin/mmu"
	"github.com/lunixbochs/bfincorn/go/devices"
	"github.com/lunixbochs/bfincorn/go/models"
)

const handlerBase = testBase + 0x100

// userMachine runs code in user mode under the operating environment, with
// a HLT at handlerBase for whichever event gets vectored.
func userMachine(t *testing.T, code ...uint16) *Machine {
	m, err := New(&models.Config{Output: &bufCloser{}, Entry: testBase, OSMode: true, EnterUser: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Mem.Write(testBase, asm(code...)); err != nil {
		t.Fatal(err)
	}
	if err := m.Mem.Write(handlerBase, asm(opHLT)); err != nil {
		t.Fatal(err)
	}
	for i := range m.CEC.EVT {
		m.CEC.EVT[i] = handlerBase
	}
	return m
}

func TestUserDataCPLBMiss(t *testing.T) {
	m := userMachine(t, 0x9100, opHLT) // R0 = [P0]
	m.MMU.D.Control |= mmu.ENCPLB
	m.Regs.R[REG_P0] = 0x20
	m.Regs.R[REG_SP] = 0x3000
	m.Regs.R[REG_KSP] = 0x4000

	halt := run(t, m)
	if halt.Err() != nil || halt.PC != handlerBase {
		t.Fatalf("got %v\n%s", halt, spew.Sdump(m.Regs))
	}
	if cause := m.Regs.R[REG_SEQSTAT] & 0x3f; cause != cec.VEC_CPLB_M {
		t.Errorf("EXCAUSE = %#x", cause)
	}
	if m.Regs.R[REG_RETX] != testBase {
		t.Errorf("RETX = %#x", m.Regs.R[REG_RETX])
	}
	if m.CEC.IPEND.Highest() != cec.EVX {
		t.Errorf("IPEND = %s", m.CEC.IPEND)
	}
	if m.Regs.R[REG_USP] != 0x3000 || m.Regs.R[REG_SP] != 0x4000 {
		t.Errorf("USP = %#x SP = %#x", m.Regs.R[REG_USP], m.Regs.R[REG_SP])
	}
	if f := m.MMU.D.Fault; f.Status != 0x80000 || f.Addr != 0x20 {
		t.Errorf("DCPLB fault status %#x addr %#x", f.Status, f.Addr)
	}
	if m.Regs.D(0) != 0 {
		t.Errorf("faulting load wrote R0 = %#x", m.Regs.D(0))
	}
}

func TestUserMMRWrite(t *testing.T) {
	m := userMachine(t, 0x9300, opHLT) // [P0] = R0
	m.Regs.R[REG_P0] = devices.SystemMMRBase + 0x204
	m.Regs.R[REG_R0] = 0x1234

	halt := run(t, m)
	if halt.Err() != nil || halt.PC != handlerBase {
		t.Fatalf("got %v", halt)
	}
	if cause := m.Regs.R[REG_SEQSTAT] & 0x3f; cause != cec.VEC_CPLB_VL {
		t.Errorf("EXCAUSE = %#x", cause)
	}
	if f := m.MMU.D.Fault; f.Addr != 0xffc00204 || f.Status&(1<<16) == 0 {
		t.Errorf("DCPLB fault status %#x addr %#x", f.Status, f.Addr)
	}
	if m.CEC.ILAT.Has(cec.IVHW) {
		t.Error("rejected store reached the bus")
	}
}

func TestCoreTimerInterrupt(t *testing.T) {
	m := userMachine(t, 0x2000) // JUMP.S 0
	m.CEC.IMASK.Set(cec.IVTMR)
	for _, w := range []struct{ off, val uint32 }{
		{devices.TCNTL, devices.TMPWR},
		{devices.TPERIOD, 10},
		{devices.TCNTL, devices.TMPWR | devices.TMREN},
	} {
		if err := m.Bus.Write(devices.CoreTimerBase+w.off, 4, w.val); err != nil {
			t.Fatal(err)
		}
	}

	halt := run(t, m)
	if halt.Err() != nil || halt.PC != handlerBase {
		t.Fatalf("got %v after %d instructions", halt, m.InsCount)
	}
	if !m.CEC.IPEND.Has(cec.IVTMR) || !m.CEC.IPEND.Has(cec.IRPTEN) {
		t.Errorf("IPEND = %s", m.CEC.IPEND)
	}
	if m.Regs.R[REG_RETI] != testBase {
		t.Errorf("RETI = %#x", m.Regs.R[REG_RETI])
	}
	tcntl, err := m.Bus.Read(devices.CoreTimerBase+devices.TCNTL, 4)
	if err != nil || tcntl&devices.TINT == 0 {
		t.Errorf("TCNTL = %#x, %v", tcntl, err)
	}
}
