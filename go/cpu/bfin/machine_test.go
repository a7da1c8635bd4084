package bfin

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/models"
)

const testBase = 0x1000

// common encodings
const (
	opNOP      = 0x0000
	opHLT      = 0xf8c4
	opABORT    = 0xf8c3
	opEMUEXCPT = 0x0025
	opR0eq5    = 0x6028 // R0 = 5
	opR1eq3    = 0x6019 // R1 = 3
	opR2eqAdd  = 0x5088 // R2 = R0 + R1
)

type bufCloser struct{ bytes.Buffer }

func (b *bufCloser) Close() error { return nil }

func asm(words ...uint16) []byte {
	p := make([]byte, len(words)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(p[i*2:], w)
	}
	return p
}

func testMachine(t *testing.T, code ...uint16) (*Machine, *bufCloser) {
	out := &bufCloser{}
	m, err := New(&models.Config{Output: out, Entry: testBase})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Mem.Write(testBase, asm(code...)); err != nil {
		t.Fatal(err)
	}
	return m, out
}

func run(t *testing.T, m *Machine) *models.Halt {
	m.cfg.MaxIns = 1000
	halt, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}
	if halt == nil {
		t.Fatal("Run returned without a halt")
	}
	return halt
}

func dbga(grp, reg int, high bool, expected uint16) []uint16 {
	op := uint16(0xf000 | grp<<3 | reg)
	if high {
		op |= 1 << 6
	}
	return []uint16{op, expected}
}

func program(parts ...interface{}) []uint16 {
	var out []uint16
	for _, p := range parts {
		switch v := p.(type) {
		case int:
			out = append(out, uint16(v))
		case uint16:
			out = append(out, v)
		case []uint16:
			out = append(out, v...)
		}
	}
	return out
}

func TestInsnLen(t *testing.T) {
	tests := []struct {
		iw0 uint16
		n   int
	}{
		{0x0000, 2},
		{0x9100, 2},
		{0xe100, 4},
		{0xe800, 4},
		{0xc682, 4},
		{0xc803, 8},
		{0xf800, 2},
		{0xf941, 2},
		{0xf000, 4},
	}
	for _, tt := range tests {
		if n := InsnLen(tt.iw0); n != tt.n {
			t.Errorf("InsnLen(%#04x) = %d, want %d", tt.iw0, n, tt.n)
		}
	}
}

func TestInsnLenLookup(t *testing.T) {
	c, n := Lookup(0xc682, 0x8021)
	if c == nil || c.name != "dsp32shiftimm" || n != 4 {
		t.Fatalf("got %v, %d", c, n)
	}
	c, n = Lookup(0x9d01, 0)
	if c == nil || c.name != "dspLDST" || n != 2 {
		t.Fatalf("got %v, %d", c, n)
	}
}

func TestRunHalt(t *testing.T) {
	m, _ := testMachine(t, program(opR0eq5, opR1eq3, opR2eqAdd, dbga(0, 2, false, 8), opHLT)...)
	halt := run(t, m)
	if halt.Reason != models.HaltExited || halt.Status != 0 {
		t.Fatalf("unexpected halt: %s\n%s", halt, spew.Sdump(m.Regs))
	}
	if halt.PC != testBase+10 {
		t.Errorf("halted at %#x", halt.PC)
	}
	if m.Regs.D(2) != 8 || m.InsCount != 4 {
		t.Errorf("R2 = %d after %d instructions", m.Regs.D(2), m.InsCount)
	}
}

func TestAbort(t *testing.T) {
	m, _ := testMachine(t, opABORT)
	if halt := run(t, m); halt.Err() != models.ExitStatus(1) {
		t.Fatalf("ABORT gave %v", halt)
	}
}

func TestDbgaFail(t *testing.T) {
	m, out := testMachine(t, program(opR0eq5, dbga(0, 0, false, 6), opHLT)...)
	halt := run(t, m)
	if halt.Err() != models.ExitStatus(2) {
		t.Fatalf("failed assertion gave %v", halt)
	}
	if !strings.Contains(out.String(), "FAIL at 0x1002: DBGA (R0.L, 0x0006); actual value 0x5") {
		t.Errorf("missing FAIL line in %q", out.String())
	}
}

func TestDbgaHigh(t *testing.T) {
	m, _ := testMachine(t, program(0x63c0, dbga(0, 0, true, 0xffff), dbga(0, 0, false, 0xfff8), opHLT)...)
	if halt := run(t, m); halt.Err() != nil {
		t.Fatalf("R0 = -8 assertions failed: %v", halt)
	}
}

func TestOutc(t *testing.T) {
	m, out := testMachine(t, 0xf941, 0xf942, 0xf90a, opHLT)
	run(t, m)
	if !strings.HasPrefix(out.String(), "AB\n") {
		t.Fatalf("output %q", out.String())
	}
}

func TestEmuexcpt(t *testing.T) {
	m, _ := testMachine(t, opEMUEXCPT, opHLT)
	if halt := run(t, m); halt.Err() != nil {
		t.Fatalf("EMUEXCPT without a debugger should continue: %v", halt)
	}

	m, _ = testMachine(t, opEMUEXCPT, opHLT)
	m.CEC.Debug = true
	halt := run(t, m)
	if halt.Reason != models.HaltStopped || halt.Signal != models.SIGTRAP || halt.PC != testBase+2 {
		t.Fatalf("EMUEXCPT under a debugger: %v", halt)
	}
}

func TestIllegalInstruction(t *testing.T) {
	m, _ := testMachine(t, 0x0001)
	halt := run(t, m)
	if halt.Signal != models.SIGILL || halt.PC != testBase {
		t.Fatalf("got %v", halt)
	}
	if cause := m.Regs.R[REG_SEQSTAT] & 0x3f; cause != cec.VEC_UNDEF_I {
		t.Errorf("EXCAUSE = %#x", cause)
	}
}

// parallelGroupProg loads R0 from [P0] in slot 1 and R1 from [I0] in slot 2.
func parallelGroupProg(slot2 uint16) []uint16 {
	return program(
		0x6038,         // R0 = 7
		0x6900,         // P0 = 0x20
		0xe150, 0x0100, // I0.H = 0x100
		0xc803, 0x1800, 0x9100, slot2, // MNOP || R0 = [P0] || slot2
		opHLT,
	)
}

func TestParallelGroupDiscard(t *testing.T) {
	m, _ := testMachine(t, parallelGroupProg(0x9d01)...) // R1 = [I0]
	if err := m.Mem.Write(0x20, []byte{0xef, 0xbe, 0xad, 0xde}); err != nil {
		t.Fatal(err)
	}
	halt := run(t, m)
	if halt.Signal != models.SIGSEGV || halt.PC != testBase+8 {
		t.Fatalf("got %v", halt)
	}
	if m.Regs.D(0) != 7 {
		t.Fatalf("slot 1 result leaked from a faulting group: R0 = %#x", m.Regs.D(0))
	}
}

func TestParallelGroupCommit(t *testing.T) {
	m, _ := testMachine(t, parallelGroupProg(opNOP)...)
	if err := m.Mem.Write(0x20, []byte{0xef, 0xbe, 0xad, 0xde}); err != nil {
		t.Fatal(err)
	}
	halt := run(t, m)
	if halt.Err() != nil || halt.PC != testBase+16 {
		t.Fatalf("got %v", halt)
	}
	if m.Regs.D(0) != 0xdeadbeef {
		t.Fatalf("R0 = %#x", m.Regs.D(0))
	}
}

func TestParallelGroupIllegalSlot(t *testing.T) {
	// R0 = 5 may not issue in parallel
	m, _ := testMachine(t, 0xc803, 0x1800, opR0eq5, opNOP, opHLT)
	halt := run(t, m)
	if halt.Signal != models.SIGILL || m.Regs.D(0) != 0 {
		t.Fatalf("got %v", halt)
	}
	if cause := m.Regs.R[REG_SEQSTAT] & 0x3f; cause != cec.VEC_ILGAL_I {
		t.Errorf("EXCAUSE = %#x", cause)
	}
}

func TestShiftImmediate(t *testing.T) {
	m, _ := testMachine(t,
		opR1eq3,
		0xc682, 0x8021, // R0 = R1 << 4
		0x63c1,         // R1 = -8
		0xc682, 0x05f9, // R2 = R1 >>> 1
		opHLT,
	)
	run(t, m)
	if m.Regs.D(0) != 48 || m.Regs.D(2) != 0xfffffffc {
		t.Fatalf("R0 = %#x R2 = %#x", m.Regs.D(0), m.Regs.D(2))
	}
}

func TestRotateThroughCC(t *testing.T) {
	m, _ := testMachine(t,
		0xe141, 0x8000, // R1.H = 0x8000
		0xe101, 0x0001, // R1.L = 1
		0xc682, 0xc009, // R0 = ROT R1 BY 1
		opHLT,
	)
	run(t, m)
	if m.Regs.D(0) != 2 || m.Regs.R[REG_ASTAT]&(1<<ASTAT_CC) == 0 {
		t.Fatalf("R0 = %#x ASTAT = %#x", m.Regs.D(0), m.Regs.R[REG_ASTAT])
	}
}

func TestPack(t *testing.T) {
	m, _ := testMachine(t, opR0eq5, opR1eq3, 0xc604, 0x0401, opHLT)
	run(t, m)
	if m.Regs.D(2) != 0x00030005 {
		t.Fatalf("R2 = %#x", m.Regs.D(2))
	}
}

func TestInstructionLimit(t *testing.T) {
	m, _ := testMachine(t, 0x2000) // JUMP.S 0
	halt := run(t, m)
	if halt.Reason != models.HaltStopped || m.InsCount != 1000 {
		t.Fatalf("got %v after %d instructions", halt, m.InsCount)
	}
}

func TestReset(t *testing.T) {
	m, _ := testMachine(t, opR0eq5, opHLT)
	run(t, m)
	m.Reset()
	if m.Regs.D(0) != 0 || m.Regs.R[REG_PC] != testBase || m.InsCount != 0 {
		t.Fatalf("reset left state behind:\n%s", spew.Sdump(m.Regs))
	}
	if !m.CEC.IPEND.Has(cec.RST) || !m.CEC.IPEND.Has(cec.IRPTEN) {
		t.Errorf("IPEND = %s", m.CEC.IPEND)
	}
}

func TestPseudoAtRegionEnd(t *testing.T) {
	// the halfword after HLT is unmapped
	const end = 0xffb00ffc
	out := &bufCloser{}
	m, err := New(&models.Config{Output: out, Entry: end})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Mem.Write(end, asm(0xf941, opHLT)); err != nil {
		t.Fatal(err)
	}
	if halt := run(t, m); halt.Err() != nil || halt.PC != end+2 {
		t.Fatalf("got %v", halt)
	}
	if !strings.HasPrefix(out.String(), "A") {
		t.Fatalf("output %q", out.String())
	}
}

// hwErrGroupProg loads from L1 instruction memory in slot 1, which is a
// hardware error for data accesses, then runs slot2.
func hwErrGroupProg(slot2 uint16) []uint16 {
	return program(
		0xe148, 0xffa0, // P0.H = 0xffa0
		0xe150, 0x0100, // I0.H = 0x100
		0xc803, 0x1800, 0x9100, slot2, // MNOP || R0 = [P0] || slot2
		opHLT,
	)
}

func TestHwErrDiscardedWithGroup(t *testing.T) {
	m, _ := testMachine(t, hwErrGroupProg(0x9d01)...) // R1 = [I0] faults
	halt := run(t, m)
	if halt.Signal != models.SIGSEGV || halt.PC != testBase+8 {
		t.Fatalf("got %v", halt)
	}
	if m.CEC.ILAT.Has(cec.IVHW) {
		t.Fatal("hardware error latched by a group that did not commit")
	}
}

func TestHwErrCommittedWithGroup(t *testing.T) {
	m, _ := testMachine(t, hwErrGroupProg(opNOP)...)
	halt := run(t, m)
	if halt.Signal != models.SIGBUS || halt.PC != testBase+16 {
		t.Fatalf("got %v", halt)
	}
}

func TestGroupLoadSeesMemoryBeforeStore(t *testing.T) {
	m, _ := testMachine(t, program(
		0x6038,         // R0 = 7
		0x6900,         // P0 = 0x20
		0xe110, 0x0020, // I0.L = 0x20
		0xc803, 0x1800, 0x9300, 0x9d01, // MNOP || [P0] = R0 || R1 = [I0]
		opHLT,
	)...)
	if err := m.Mem.Write(0x20, []byte{0xef, 0xbe, 0xad, 0xde}); err != nil {
		t.Fatal(err)
	}
	if halt := run(t, m); halt.Err() != nil {
		t.Fatalf("got %v", halt)
	}
	if m.Regs.D(1) != 0xdeadbeef {
		t.Errorf("slot 2 load saw the slot 1 store: R1 = %#x", m.Regs.D(1))
	}
	if p, err := m.MemRead(0x20, 4); err != nil || binary.LittleEndian.Uint32(p) != 7 {
		t.Errorf("[0x20] = %x, %v", p, err)
	}
}
