package loader

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestParseRawSpec(t *testing.T) {
	tests := []struct {
		spec string
		path string
		addr uint32
		ok   bool
	}{
		{"boot.bin@0xef000000", "boot.bin", 0xef000000, true},
		{"a@b.bin@4096", "a@b.bin", 4096, true},
		{"boot.bin", "", 0, false},
		{"@0x100", "", 0, false},
		{"boot.bin@", "", 0, false},
		{"boot.bin@0x100000000", "", 0, false},
	}
	for _, tt := range tests {
		path, addr, err := ParseRawSpec(tt.spec)
		if (err == nil) != tt.ok {
			t.Errorf("ParseRawSpec(%q) error = %v", tt.spec, err)
			continue
		}
		if tt.ok && (path != tt.path || addr != tt.addr) {
			t.Errorf("ParseRawSpec(%q) = %q, %#x", tt.spec, path, addr)
		}
	}
}

type memMap map[uint32][]byte

func (m memMap) MemWrite(addr uint32, p []byte) error {
	if addr == 0xdead0000 {
		return errors.New("unmapped")
	}
	m[addr] = append([]byte{}, p...)
	return nil
}

func TestMapRaw(t *testing.T) {
	mem := memMap{}
	l := NewRawLoader([]byte{1, 2, 3}, 0x2000)
	if err := Map(mem, l); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(mem[0x2000], []byte{1, 2, 3}) || l.Entry() != 0x2000 {
		t.Fatalf("mapped %v", mem)
	}
	if err := Map(mem, NewRawLoader([]byte{1}, 0xdead0000)); err == nil {
		t.Fatal("write error was dropped")
	}
}
