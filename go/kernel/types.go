package kernel

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/argjoy"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
)

type (
	// Buf is a guest pointer the kernel reads from.
	Buf struct {
		Addr uint32
		K    *KernelBase
	}
	// Obuf is a guest pointer the kernel writes to.
	Obuf struct{ Buf }
	Len  uint32
	Off  int32
	Fd   int32
	Ptr  uint32
)

const maxPath = 4096

// memStream reads and writes guest memory sequentially from addr.
type memStream struct {
	mem  Memory
	addr uint32
}

func (s *memStream) Read(p []byte) (int, error) {
	data, err := s.mem.MemRead(s.addr, len(p))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	s.addr += uint32(n)
	return n, nil
}

func (s *memStream) Write(p []byte) (int, error) {
	if err := s.mem.MemWrite(s.addr, p); err != nil {
		return 0, err
	}
	s.addr += uint32(len(p))
	return len(p), nil
}

func (b Buf) Struc() *models.StrucStream {
	return &models.StrucStream{Stream: &memStream{b.K.Mem, b.Addr}, Order: binary.LittleEndian}
}

func (b Buf) Pack(i interface{}) error {
	return errors.Wrap(b.Struc().Pack(i), "struc.Pack() failed")
}

func (b Buf) Unpack(i interface{}) error {
	return errors.Wrap(b.Struc().Unpack(i), "struc.Unpack() failed")
}

// readString reads a NUL terminated guest string.
func (k *KernelBase) readString(addr uint32) (string, error) {
	var out []byte
	for len(out) < maxPath {
		chunk, err := k.Mem.MemRead(addr+uint32(len(out)), 64)
		if err != nil {
			// the string may end right before an unmapped page
			chunk, err = k.Mem.MemRead(addr+uint32(len(out)), 1)
			if err != nil {
				return "", err
			}
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			return string(append(out, chunk[:i]...)), nil
		}
		out = append(out, chunk...)
	}
	return "", errors.Errorf("string at 0x%08x is too long", addr)
}

func (k *KernelBase) argCodec(arg interface{}, vals []interface{}) error {
	reg, ok := vals[0].(uint32)
	if !ok {
		return argjoy.NoMatch
	}
	switch v := arg.(type) {
	case *Buf:
		*v = Buf{Addr: reg, K: k}
	case *Obuf:
		*v = Obuf{Buf{Addr: reg, K: k}}
	case *Len:
		*v = Len(reg)
	case *Off:
		*v = Off(int32(reg))
	case *Fd:
		*v = Fd(int32(reg))
	case *Ptr:
		*v = Ptr(reg)
	case *string:
		s, err := k.readString(reg)
		if err != nil {
			return err
		}
		*v = s
	default:
		return argjoy.NoMatch
	}
	return nil
}
