package loader

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
)

type LoaderHeader struct {
	arch      string
	byteOrder binary.ByteOrder
	entry     uint32
	symCache  []models.Symbol
	getSyms   func() ([]models.Symbol, error)
}

func (l *LoaderHeader) Arch() string {
	return l.arch
}

func (l *LoaderHeader) ByteOrder() binary.ByteOrder {
	if l.byteOrder == nil {
		return binary.LittleEndian
	}
	return l.byteOrder
}

func (l *LoaderHeader) Entry() uint32 {
	return l.entry
}

func (l *LoaderHeader) Symbols() ([]models.Symbol, error) {
	if l.getSyms == nil {
		return nil, nil
	}
	var err error
	if l.symCache == nil {
		l.symCache, err = l.getSyms()
	}
	return l.symCache, err
}

// End is the first address past the highest segment of l.
func End(l models.Loader) (uint32, error) {
	segs, err := l.Segments()
	if err != nil {
		return 0, err
	}
	var end uint32
	for _, seg := range segs {
		if e := seg.Addr + seg.Size; e > end {
			end = e
		}
	}
	return end, nil
}

// Map copies every segment of l into w. Bytes past a segment's file data
// are zero filled.
func Map(w models.MemWriter, l models.Loader) error {
	segs, err := l.Segments()
	if err != nil {
		return err
	}
	for _, seg := range segs {
		data, err := seg.Data()
		if err != nil {
			return errors.Wrapf(err, "reading segment at 0x%08x", seg.Addr)
		}
		if err := w.MemWrite(seg.Addr, data); err != nil {
			return errors.Wrapf(err, "loading %d bytes at 0x%08x", len(data), seg.Addr)
		}
	}
	return nil
}
