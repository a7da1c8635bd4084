package models

import (
	"strings"
	"testing"
)

func TestHexDump(t *testing.T) {
	lines := HexDump(0x1000, []byte("ABCDEFGHIJ"))
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "0x00001000: 41424344 45464748 494a    ") {
		t.Errorf("bad dump: %q", lines[0])
	}
	if !strings.Contains(lines[0], "[ABCD EFGH IJ  ") {
		t.Errorf("bad tail: %q", lines[0])
	}
	lines = HexDump(0, make([]byte, 100))
	if len(lines) != 5 || !strings.HasPrefix(lines[1], "0x00000014:") {
		t.Errorf("bad rows: %q", lines)
	}
}

func TestRepr(t *testing.T) {
	if s := Repr([]byte("a\x00b"), 0); s != `"a\x00b"` {
		t.Errorf("got %s", s)
	}
	if s := Repr([]byte("abcdefgh"), 6); s != `"abc"...` {
		t.Errorf("got %s", s)
	}
}
