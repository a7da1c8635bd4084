package bfin

import (
	"reflect"
	"testing"
)

func TestNextPCsAtomicRegion(t *testing.T) {
	// CLI R0; R1 = 3; STI R0; NOP; HLT
	m, _ := testMachine(t, 0x0030, opR1eq3, 0x0040, opNOP, opHLT)
	if got := m.NextPCs(testBase); !reflect.DeepEqual(got, []uint32{testBase + 6}) {
		t.Fatalf("NextPCs = %#x", got)
	}
	halt, err := m.SingleStep()
	if err != nil || halt != nil {
		t.Fatalf("SingleStep: %v %v", halt, err)
	}
	if pc := m.ReadPC(); pc != testBase+6 || m.InsCount != 3 {
		t.Fatalf("stopped at %#x after %d instructions", pc, m.InsCount)
	}
	if m.Regs.D(1) != 3 {
		t.Fatalf("R1 = %d", m.Regs.D(1))
	}
}

func TestNextPCsBranch(t *testing.T) {
	m, _ := testMachine(t, 0x1802, opNOP, opNOP, opHLT) // IF CC JUMP 4
	if got := m.NextPCs(testBase); !reflect.DeepEqual(got, []uint32{testBase + 2, testBase + 4}) {
		t.Fatalf("NextPCs = %#x", got)
	}
}

func TestNextPCsUnterminatedCLI(t *testing.T) {
	code := []uint16{0x0030}
	for i := 0; i < atomicScanBudget+2; i++ {
		code = append(code, opNOP)
	}
	m, _ := testMachine(t, code...)
	if got := m.NextPCs(testBase); !reflect.DeepEqual(got, []uint32{testBase + 2}) {
		t.Fatalf("NextPCs = %#x", got)
	}
	if _, err := m.SingleStep(); err != nil {
		t.Fatal(err)
	}
	if m.InsCount != 1 {
		t.Fatalf("stepped %d instructions", m.InsCount)
	}
}

func TestSingleStepHalts(t *testing.T) {
	m, _ := testMachine(t, opHLT)
	halt, err := m.SingleStep()
	if err != nil || halt == nil || halt.Err() != nil {
		t.Fatalf("got %v %v", halt, err)
	}
}
