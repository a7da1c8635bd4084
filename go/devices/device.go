package devices

import (
	"fmt"

	"github.com/pkg/errors"
)

// Memory mapped register space starts here. Everything above is routed to a Bus.
const (
	SystemMMRBase = 0xffc00000
	CoreMMRBase   = 0xffe00000
)

var ErrInvalidMMR = errors.New("invalid MMR access")

// MMRError describes a rejected register access. errors.Cause returns ErrInvalidMMR.
type MMRError struct {
	Device string
	Addr   uint32
	Width  int
	Write  bool
	Reason string
}

func (e *MMRError) Error() string {
	dir := "read"
	if e.Write {
		dir = "write"
	}
	name := e.Device
	if name == "" {
		name = "<none>"
	}
	return fmt.Sprintf("%s: %s of %d bytes at 0x%08x (%s): %s", ErrInvalidMMR, dir, e.Width, e.Addr, name, e.Reason)
}

func (e *MMRError) Cause() error { return ErrInvalidMMR }

// Device is a block of memory mapped registers. Offsets are relative to Base.
type Device interface {
	Name() string
	Base() uint32
	Size() uint32
	ReadRegister(offset uint32, width int) (uint32, error)
	WriteRegister(offset uint32, width int, value uint32) error
	Reset()
}

// Interrupter is the port event interface of the core event controller.
type Interrupter interface {
	RaiseLevel(ivg int)
	LowerLevel(ivg int)
}

// Require32 rejects anything but an aligned 32-bit access.
func Require32(d Device, offset uint32, width int, write bool) error {
	if width != 4 || offset&3 != 0 {
		return &MMRError{Device: d.Name(), Addr: d.Base() + offset, Width: width, Write: write, Reason: "require 32-bit aligned access"}
	}
	return nil
}

// Require16 rejects anything but an aligned 16-bit access.
func Require16(d Device, offset uint32, width int, write bool) error {
	if width != 2 || offset&1 != 0 {
		return &MMRError{Device: d.Name(), Addr: d.Base() + offset, Width: width, Write: write, Reason: "require 16-bit aligned access"}
	}
	return nil
}

// Missing reports an access to a hole in a device's register block.
func Missing(d Device, offset uint32, width int, write bool) error {
	return &MMRError{Device: d.Name(), Addr: d.Base() + offset, Width: width, Write: write, Reason: "no register"}
}
