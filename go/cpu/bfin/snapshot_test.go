package bfin

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/lunixbochs/bfincorn/go/models"
)

func TestSnapshotRoundTrip(t *testing.T) {
	m, _ := testMachine(t, opR0eq5, opR1eq3, opR2eqAdd, opHLT)
	run(t, m)
	m.CEC.EVT[5] = 0x12345678
	if err := m.Mem.Write(0x100, []byte("state")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := m.Snapshot().Save(&buf); err != nil {
		t.Fatal(err)
	}
	snap, err := models.LoadSnapshot(&buf)
	if err != nil {
		t.Fatal(err)
	}

	m2, _ := testMachine(t)
	if err := m2.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if m2.Regs != m.Regs {
		t.Fatalf("registers differ:\n%s\n%s", spew.Sdump(m.Regs), spew.Sdump(m2.Regs))
	}
	if m2.InsCount != m.InsCount || m2.CEC.EVT[5] != 0x12345678 {
		t.Fatalf("InsCount %d EVT5 %#x", m2.InsCount, m2.CEC.EVT[5])
	}
	p := make([]byte, 5)
	if err := m2.Mem.Read(0x100, p); err != nil || string(p) != "state" {
		t.Fatalf("memory %q %v", p, err)
	}
}

func TestRestoreWrongArch(t *testing.T) {
	m, _ := testMachine(t, opHLT)
	snap := m.Snapshot()
	snap.Arch = "x86"
	if err := m.Restore(snap); err == nil {
		t.Fatal("restored a foreign savestate")
	}
}

func TestRestoreUnknownMMR(t *testing.T) {
	m, _ := testMachine(t, opHLT)
	snap := m.Snapshot()
	snap.MMRs = append(snap.MMRs, models.SnapshotWord{Key: 0xffe0fff0, Val: 1})
	pc := m.ReadPC()
	m.Regs.R[REG_PC] = pc + 2
	if err := m.Restore(snap); err == nil {
		t.Fatal("accepted an unknown MMR")
	}
	if m.ReadPC() != pc+2 {
		t.Fatal("failed restore modified registers")
	}
}
