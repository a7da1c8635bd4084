package mem

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

type MemError struct {
	Addr uint32
	Size int
	Enum int
}

func (m *MemError) Error() string {
	reason := "memory error"
	switch m.Enum {
	case MEM_WRITE_UNMAPPED:
		reason = "unmapped write"
	case MEM_READ_UNMAPPED:
		reason = "unmapped read"
	case MEM_FETCH_UNMAPPED:
		reason = "unmapped fetch"
	case MEM_WRITE_PROT:
		reason = "protected write"
	case MEM_READ_PROT:
		reason = "protected read"
	case MEM_FETCH_PROT:
		reason = "protected exec"
	}
	return fmt.Sprintf("%s at %#x(%d)", reason, m.Addr, m.Size)
}

// Unmapped reports whether err is a MemError for an address with no backing store.
func Unmapped(err error) bool {
	if merr, ok := errors.Cause(err).(*MemError); ok {
		switch merr.Enum {
		case MEM_READ_UNMAPPED, MEM_WRITE_UNMAPPED, MEM_FETCH_UNMAPPED:
			return true
		}
	}
	return false
}

// Mem is the physical address space of the core: a sorted set of
// non-overlapping regions. Memory-mapped registers are not stored here.
type Mem struct {
	regions Regions
	order   binary.ByteOrder
}

func New() *Mem {
	return &Mem{order: binary.LittleEndian}
}

func (m *Mem) Regions() Regions {
	return m.regions
}

// Map adds a zero-filled region. Overlapping an existing region is an error.
func (m *Mem) Map(addr, size uint32, prot int, name string) (*Region, error) {
	if size == 0 {
		return nil, errors.Errorf("map %s: zero size", name)
	}
	if uint64(addr)+uint64(size) > 1<<32 {
		return nil, errors.Errorf("map %s: region %#x+%#x outside 32-bit space", name, addr, size)
	}
	for _, r := range m.regions {
		if r.Overlaps(addr, size) {
			return nil, errors.Errorf("map %s: overlaps %s", name, r)
		}
	}
	r := &Region{Addr: addr, Size: size, Prot: prot, Name: name, Data: make([]byte, size)}
	m.regions = append(m.regions, r)
	sort.Sort(m.regions)
	return r, nil
}

func (m *Mem) Unmap(addr uint32) error {
	i := m.regions.bsearch(addr)
	if i < 0 || m.regions[i].Addr != addr {
		return errors.Errorf("no region starts at %#x", addr)
	}
	m.regions = append(m.regions[:i], m.regions[i+1:]...)
	return nil
}

// Mapped reports whether the whole range is backed and every region has prot.
func (m *Mem) Mapped(addr uint32, size int, prot int) (mapped bool, protOk bool) {
	end := uint64(addr) + uint64(size)
	cur := uint64(addr)
	protOk = true
	for cur < end {
		if cur >= 1<<32 {
			return false, false
		}
		r := m.regions.Find(uint32(cur))
		if r == nil {
			return false, false
		}
		if prot != 0 && r.Prot&prot != prot {
			protOk = false
		}
		cur = r.End()
	}
	return true, protOk
}

func (m *Mem) access(addr uint32, p []byte, prot int, write bool) error {
	mapped, protOk := m.Mapped(addr, len(p), prot)
	if !mapped || !protOk {
		enum := MEM_READ_UNMAPPED
		switch {
		case write && !mapped:
			enum = MEM_WRITE_UNMAPPED
		case write:
			enum = MEM_WRITE_PROT
		case prot&PROT_EXEC != 0 && !mapped:
			enum = MEM_FETCH_UNMAPPED
		case prot&PROT_EXEC != 0:
			enum = MEM_FETCH_PROT
		case mapped:
			enum = MEM_READ_PROT
		}
		return &MemError{Addr: addr, Size: len(p), Enum: enum}
	}
	for len(p) > 0 {
		r := m.regions.Find(addr)
		o := addr - r.Addr
		var n int
		if write {
			n = copy(r.Data[o:], p)
		} else {
			n = copy(p, r.Data[o:])
		}
		addr, p = addr+uint32(n), p[n:]
	}
	return nil
}

// Read copies without protection checks, for loaders and debuggers.
func (m *Mem) Read(addr uint32, p []byte) error {
	return m.access(addr, p, 0, false)
}

func (m *Mem) Write(addr uint32, p []byte) error {
	return m.access(addr, p, 0, true)
}

// ReadProt and WriteProt enforce the region protections, for the simulated core.
func (m *Mem) ReadProt(addr uint32, p []byte, prot int) error {
	return m.access(addr, p, prot, false)
}

func (m *Mem) WriteProt(addr uint32, p []byte) error {
	return m.access(addr, p, PROT_WRITE, true)
}

func (m *Mem) ReadUint(addr uint32, size int, prot int) (uint32, error) {
	var buf [4]byte
	if size > 4 {
		return 0, errors.Errorf("ReadUint size too large: %d > 4", size)
	}
	if err := m.ReadProt(addr, buf[:size], prot); err != nil {
		return 0, err
	}
	return UnpackUint(m.order, size, buf[:size])
}

func (m *Mem) WriteUint(addr uint32, size int, val uint32) error {
	var buf [4]byte
	if _, err := PackUint(m.order, size, buf[:], val); err != nil {
		return err
	}
	return m.WriteProt(addr, buf[:size])
}
