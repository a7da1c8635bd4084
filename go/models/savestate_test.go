package models

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestSnapshotRoundTrip(t *testing.T) {
	snap := &Snapshot{
		Arch: "bfin",
		Regs: []SnapshotWord{{0, 0x1234}, {63, 0xffffffff}},
		MMRs: []SnapshotWord{{0xffe02104, 0x1f}},
		Regions: []SnapshotRegion{
			{Addr: 0x1000, Prot: 7, Name: "sdram", Data: []byte{1, 2, 3, 4}},
			{Addr: 0xffa00000, Prot: 5, Name: "l1 inst", Data: bytes.Repeat([]byte{0xaa}, 64)},
		},
	}
	var buf bytes.Buffer
	if err := snap.Save(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSnapshot(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.Arch != "bfin" || len(got.Regs) != 2 || got.Regs[1].Val != 0xffffffff ||
		len(got.MMRs) != 1 || len(got.Regions) != 2 ||
		got.Regions[1].Name != "l1 inst" || !bytes.Equal(got.Regions[1].Data, snap.Regions[1].Data) {
		t.Fatalf("snapshot mismatch:\n%s", spew.Sdump(got))
	}
}

func TestSnapshotCorrupt(t *testing.T) {
	snap := &Snapshot{Arch: "bfin"}
	var buf bytes.Buffer
	if err := snap.Save(&buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xff
	if _, err := LoadSnapshot(bytes.NewReader(raw)); err == nil {
		t.Fatal("corrupt savestate loaded without error")
	}
}
