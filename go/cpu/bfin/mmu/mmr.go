package mmu

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/devices"
)

const (
	DMemBase = devices.CoreMMRBase
	IMemBase = devices.CoreMMRBase + 0x1000
	MMRSize  = 0x1000

	SRAM_BASE_ADDRESS = 0x000
	MEM_CONTROL       = 0x004
	CPLB_FAULT_STATUS = 0x008
	CPLB_FAULT_ADDR   = 0x00c
	CPLB_ADDR0        = 0x100
	CPLB_DATA0        = 0x200
	TEST_COMMAND      = 0x300
	TEST_DATA0        = 0x400

	TEST_READ       = 0
	TEST_WRITE      = 1 << 1
	TEST_DATA_ARRAY = 1 << 2
)

// mmrBlock exposes one side of the MMU as a register block.
type mmrBlock struct {
	m    *MMU
	inst bool
}

// Devices returns the data and instruction side register blocks.
func (m *MMU) Devices() []devices.Device {
	return []devices.Device{&mmrBlock{m, false}, &mmrBlock{m, true}}
}

func (b *mmrBlock) Name() string {
	if b.inst {
		return "imem"
	}
	return "dmem"
}

func (b *mmrBlock) Base() uint32 {
	if b.inst {
		return IMemBase
	}
	return DMemBase
}

func (b *mmrBlock) Size() uint32 { return MMRSize }

// the MMU as a whole is reset by the machine
func (b *mmrBlock) Reset() {}

func (b *mmrBlock) ReadRegister(offset uint32, width int) (uint32, error) {
	if err := devices.Require32(b, offset, width, false); err != nil {
		return 0, err
	}
	s := b.m.space(b.inst)
	switch {
	case offset == SRAM_BASE_ADDRESS:
		if b.inst {
			return 0, nil
		}
		return b.m.SRAMBase, nil
	case offset == MEM_CONTROL:
		return s.Control, nil
	case offset == CPLB_FAULT_STATUS:
		return s.Fault.Status, nil
	case offset == CPLB_FAULT_ADDR:
		return s.Fault.Addr, nil
	case offset >= CPLB_ADDR0 && offset < CPLB_ADDR0+16*4:
		return s.CPLB[(offset-CPLB_ADDR0)/4].Addr, nil
	case offset >= CPLB_DATA0 && offset < CPLB_DATA0+16*4:
		return s.CPLB[(offset-CPLB_DATA0)/4].Data, nil
	case offset == TEST_COMMAND:
		return s.TestCommand, nil
	case offset == TEST_DATA0 || offset == TEST_DATA0+4:
		return s.TestData[(offset-TEST_DATA0)/4], nil
	}
	return 0, devices.Missing(b, offset, width, false)
}

func (b *mmrBlock) WriteRegister(offset uint32, width int, value uint32) error {
	if err := devices.Require32(b, offset, width, true); err != nil {
		return err
	}
	s := b.m.space(b.inst)
	switch {
	case offset == SRAM_BASE_ADDRESS, offset == CPLB_FAULT_STATUS, offset == CPLB_FAULT_ADDR:
		// read-only
	case offset == MEM_CONTROL:
		s.Control = value
	case offset >= CPLB_ADDR0 && offset < CPLB_ADDR0+16*4:
		s.CPLB[(offset-CPLB_ADDR0)/4].Addr = value
	case offset >= CPLB_DATA0 && offset < CPLB_DATA0+16*4:
		s.CPLB[(offset-CPLB_DATA0)/4].Data = value
	case offset == TEST_DATA0 || offset == TEST_DATA0+4:
		s.TestData[(offset-TEST_DATA0)/4] = value
	case offset == TEST_COMMAND:
		s.TestCommand = value
		if value != 0 {
			if b.inst {
				return &devices.MMRError{Device: b.Name(), Addr: b.Base() + offset, Width: width, Write: true, Reason: "ITEST_COMMAND unimplemented"}
			}
			return b.m.testCommand(value)
		}
	default:
		return devices.Missing(b, offset, width, true)
	}
	return nil
}

// testCommand reads or writes 8 bytes of L1 data memory through DTEST_DATA.
func (m *MMU) testCommand(value uint32) error {
	if value&TEST_DATA_ARRAY == 0 {
		return &devices.MMRError{Device: "dmem", Addr: DMemBase + TEST_COMMAND, Width: 4, Write: true, Reason: "DTEST_COMMAND tag array unimplemented"}
	}
	if value&0xfa7cb801 != 0 {
		return &devices.MMRError{Device: "dmem", Addr: DMemBase + TEST_COMMAND, Width: 4, Write: true, Reason: "DTEST_COMMAND bits undefined"}
	}
	if m.Mem == nil {
		return nil
	}
	addr := m.SRAMBase |
		(value>>(26-11))&(1<<11) | // way
		(value>>(24-21))&(1<<21) | // data/inst
		(value>>(23-15))&(1<<15) | // data bank
		(value>>(16-12))&(3<<12) | // subbank
		value&0x47f8
	var buf [8]byte
	if value&TEST_WRITE != 0 {
		binary.LittleEndian.PutUint32(buf[:], m.D.TestData[0])
		binary.LittleEndian.PutUint32(buf[4:], m.D.TestData[1])
		return errors.Wrap(m.Mem.Write(addr, buf[:]), "DTEST_COMMAND write")
	}
	if err := m.Mem.Read(addr, buf[:]); err != nil {
		return errors.Wrap(err, "DTEST_COMMAND read")
	}
	m.D.TestData[0] = binary.LittleEndian.Uint32(buf[:])
	m.D.TestData[1] = binary.LittleEndian.Uint32(buf[4:])
	return nil
}
