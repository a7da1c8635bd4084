package mem

import (
	"fmt"
	"strings"
)

// Region is one contiguous chunk of simulated backing store, such as
// external SDRAM, an L1 SRAM bank or the boot ROM.
type Region struct {
	Addr uint32
	Size uint32
	Prot int
	Name string
	Data []byte
}

func (r *Region) End() uint64 {
	return uint64(r.Addr) + uint64(r.Size)
}

func (r *Region) Contains(addr uint32) bool {
	return addr >= r.Addr && uint64(addr) < r.End()
}

func (r *Region) Overlaps(addr, size uint32) bool {
	end := uint64(addr) + uint64(size)
	return uint64(r.Addr) < end && uint64(addr) < r.End()
}

func (r *Region) String() string {
	prot := []byte("---")
	if r.Prot&PROT_READ != 0 {
		prot[0] = 'r'
	}
	if r.Prot&PROT_WRITE != 0 {
		prot[1] = 'w'
	}
	if r.Prot&PROT_EXEC != 0 {
		prot[2] = 'x'
	}
	desc := fmt.Sprintf("0x%08x-0x%08x %s", r.Addr, r.End(), prot)
	if r.Name != "" {
		desc += fmt.Sprintf(" [%s]", r.Name)
	}
	return desc
}

type Regions []*Region

func (p Regions) Len() int           { return len(p) }
func (p Regions) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p Regions) Less(i, j int) bool { return p[i].Addr < p[j].Addr }

func (p Regions) String() string {
	s := make([]string, len(p))
	for i, v := range p {
		s[i] = v.String()
	}
	return strings.Join(s, "\n")
}

// bsearch returns the index of the region containing addr, or -1.
func (p Regions) bsearch(addr uint32) int {
	l, r := 0, len(p)-1
	for l <= r {
		mid := (l + r) / 2
		e := p[mid]
		if addr < e.Addr {
			r = mid - 1
		} else if uint64(addr) >= e.End() {
			l = mid + 1
		} else {
			return mid
		}
	}
	return -1
}

func (p Regions) Find(addr uint32) *Region {
	if i := p.bsearch(addr); i >= 0 {
		return p[i]
	}
	return nil
}
