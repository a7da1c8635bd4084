package devices

import (
	"sort"

	"github.com/pkg/errors"
)

// Bus routes MMR accesses to the device whose block contains the address.
type Bus struct {
	devs []Device
}

func (b *Bus) Attach(d Device) error {
	base, end := uint64(d.Base()), uint64(d.Base())+uint64(d.Size())
	for _, o := range b.devs {
		if base < uint64(o.Base())+uint64(o.Size()) && uint64(o.Base()) < end {
			return errors.Errorf("device %s overlaps %s", d.Name(), o.Name())
		}
	}
	b.devs = append(b.devs, d)
	sort.Slice(b.devs, func(i, j int) bool { return b.devs[i].Base() < b.devs[j].Base() })
	return nil
}

func (b *Bus) Devices() []Device {
	return b.devs
}

func (b *Bus) Find(addr uint32) Device {
	i := sort.Search(len(b.devs), func(i int) bool {
		d := b.devs[i]
		return uint64(d.Base())+uint64(d.Size()) > uint64(addr)
	})
	if i < len(b.devs) && b.devs[i].Base() <= addr {
		return b.devs[i]
	}
	return nil
}

func (b *Bus) Read(addr uint32, width int) (uint32, error) {
	d := b.Find(addr)
	if d == nil {
		return 0, &MMRError{Addr: addr, Width: width, Reason: "unmapped register space"}
	}
	return d.ReadRegister(addr-d.Base(), width)
}

func (b *Bus) Write(addr uint32, width int, val uint32) error {
	d := b.Find(addr)
	if d == nil {
		return &MMRError{Addr: addr, Width: width, Write: true, Reason: "unmapped register space"}
	}
	return d.WriteRegister(addr-d.Base(), width, val)
}

func (b *Bus) Reset() {
	for _, d := range b.devs {
		d.Reset()
	}
}
