package models

import (
	"testing"
)

func TestNewBreakpoint(t *testing.T) {
	syms := NewSymbolTable([]Symbol{{"_start", 0x1000, 0x1010}, {"main", 0x1010, 0x1100}})
	tests := []struct {
		desc string
		addr uint32
	}{
		{"0x1234", 0x1234},
		{"*0x20", 0x20},
		{"4096", 4096},
		{"main", 0x1010},
		{"main+0x8", 0x1018},
		{"_start+4", 0x1004},
	}
	for _, tt := range tests {
		b, err := NewBreakpoint(tt.desc, syms)
		if err != nil {
			t.Errorf("%s: %v", tt.desc, err)
			continue
		}
		if b.Addr != tt.addr {
			t.Errorf("%s resolved to %#x, want %#x", tt.desc, b.Addr, tt.addr)
		}
	}
	for _, bad := range []string{"", "nosuch", "main+zz", "0x1ffffffff"} {
		if _, err := NewBreakpoint(bad, syms); err == nil {
			t.Errorf("%q parsed", bad)
		}
	}
}

func TestSymbolicate(t *testing.T) {
	syms := NewSymbolTable([]Symbol{{"main", 0x1010, 0x1100}, {"_start", 0x1000, 0x1010}})
	if s := syms.Symbolicate(0x1014); s != "main+0x4" {
		t.Errorf("got %s", s)
	}
	if s := syms.Symbolicate(0x1000); s != "_start" {
		t.Errorf("got %s", s)
	}
	if s := syms.Symbolicate(0x2000); s != "0x00002000" {
		t.Errorf("got %s", s)
	}
}
