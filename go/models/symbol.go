package models

import (
	"fmt"
	"sort"
)

type Symbol struct {
	Name       string
	Start, End uint32
}

func (s Symbol) Contains(addr uint32) bool {
	return s.Start <= addr && (addr < s.End || s.End == s.Start && addr == s.Start)
}

// SymbolTable answers address lookups over a loader's symbols.
type SymbolTable []Symbol

func NewSymbolTable(syms []Symbol) SymbolTable {
	t := make(SymbolTable, 0, len(syms))
	for _, s := range syms {
		if s.Name != "" {
			t = append(t, s)
		}
	}
	sort.Slice(t, func(i, j int) bool { return t[i].Start < t[j].Start })
	return t
}

// Lookup returns the closest symbol at or below addr.
func (t SymbolTable) Lookup(addr uint32) (Symbol, bool) {
	i := sort.Search(len(t), func(i int) bool { return t[i].Start > addr })
	for i--; i >= 0; i-- {
		if t[i].Contains(addr) {
			return t[i], true
		}
	}
	return Symbol{}, false
}

// Symbolicate formats addr as sym+off, or as a bare address when nothing covers it.
func (t SymbolTable) Symbolicate(addr uint32) string {
	if s, ok := t.Lookup(addr); ok {
		if addr == s.Start {
			return s.Name
		}
		return fmt.Sprintf("%s+%#x", s.Name, addr-s.Start)
	}
	return fmt.Sprintf("0x%08x", addr)
}

// Find returns the symbol named name.
func (t SymbolTable) Find(name string) (Symbol, bool) {
	for _, s := range t {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}
