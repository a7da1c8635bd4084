package cec

import (
	"github.com/lunixbochs/bfincorn/go/devices"
)

const (
	EVTBase = devices.CoreMMRBase + 0x2000
	CECBase = devices.CoreMMRBase + 0x2100

	EVT_OVERRIDE = 0x00
	MMR_IMASK    = 0x04
	MMR_IPEND    = 0x08
	MMR_ILAT     = 0x0c
	MMR_IPRIO    = 0x10
)

// EVT holds the handler address for each level.
type EVT [16]uint32

type evtBlock struct{ c *CEC }

func (e evtBlock) Name() string { return "evt" }
func (e evtBlock) Base() uint32 { return EVTBase }
func (e evtBlock) Size() uint32 { return 16 * 4 }
func (e evtBlock) Reset()       {}

func (e evtBlock) ReadRegister(offset uint32, width int) (uint32, error) {
	if err := devices.Require32(e, offset, width, false); err != nil {
		return 0, err
	}
	return e.c.EVT[offset/4], nil
}

func (e evtBlock) WriteRegister(offset uint32, width int, value uint32) error {
	if err := devices.Require32(e, offset, width, true); err != nil {
		return err
	}
	e.c.EVT[offset/4] = value
	return nil
}

type cecBlock struct{ c *CEC }

func (b cecBlock) Name() string { return "cec" }
func (b cecBlock) Base() uint32 { return CECBase }
func (b cecBlock) Size() uint32 { return 5 * 4 }
func (b cecBlock) Reset()       {}

func (b cecBlock) ReadRegister(offset uint32, width int) (uint32, error) {
	if err := devices.Require32(b, offset, width, false); err != nil {
		return 0, err
	}
	c := b.c
	switch offset {
	case EVT_OVERRIDE:
		return c.EVTOverride, nil
	case MMR_IMASK:
		return uint32(c.IMASK), nil
	case MMR_IPEND:
		return uint32(c.IPEND), nil
	case MMR_ILAT:
		return uint32(c.ILAT), nil
	case MMR_IPRIO:
		return c.IPRIO, nil
	}
	return 0, devices.Missing(b, offset, width, false)
}

func (b cecBlock) WriteRegister(offset uint32, width int, value uint32) error {
	if err := devices.Require32(b, offset, width, true); err != nil {
		return err
	}
	c := b.c
	switch offset {
	case EVT_OVERRIDE:
		c.EVTOverride = value
	case MMR_IMASK:
		c.writeIMASK(value)
		c.checkPending()
	case MMR_IPEND:
		// read-only
	case MMR_ILAT:
		c.ILAT &^= Levels(value) & ilatW1C
	case MMR_IPRIO:
		c.IPRIO = value & uint32(Unmaskable)
	default:
		return devices.Missing(b, offset, width, true)
	}
	return nil
}

// Devices returns the EVT and CEC register blocks. Both are reset with the CEC.
func (c *CEC) Devices() []devices.Device {
	return []devices.Device{evtBlock{c}, cecBlock{c}}
}
