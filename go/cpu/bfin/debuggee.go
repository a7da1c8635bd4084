package bfin

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/devices"
	"github.com/lunixbochs/bfincorn/go/models"
)

var _ models.Debuggee = (*Machine)(nil)

func (m *Machine) RegisterNames() []string {
	return regNames[:]
}

func (m *Machine) RegisterIndex(name string) (int, bool) {
	name = strings.ToUpper(name)
	for i, n := range regNames {
		if n == name || strings.Replace(n, ".", "", 1) == name {
			return i, true
		}
	}
	return -1, false
}

func (m *Machine) ReadRegister(idx int) (uint32, error) {
	if idx < 0 || idx >= NumRegs {
		return 0, errors.Errorf("register %d out of range", idx)
	}
	return m.Regs.R[idx], nil
}

func (m *Machine) WriteRegister(idx int, val uint32) error {
	if idx < 0 || idx >= NumRegs {
		return errors.Errorf("register %d out of range", idx)
	}
	switch idx {
	case REG_ASTAT:
		val &= astatMask
	case REG_A0X, REG_A1X:
		val &= 0xff
	}
	m.Regs.R[idx] = val
	return nil
}

func (m *Machine) ReadPC() uint32         { return m.Regs.R[REG_PC] }
func (m *Machine) WritePC(pc uint32)      { m.Regs.R[REG_PC] = pc }
func (m *Machine) IsSupervisorMode() bool { return m.CEC.IsSupervisor() }

// MemRead reads backing store directly, or memory mapped registers a word
// at a time. No MMU checks apply.
func (m *Machine) MemRead(addr uint32, size int) ([]byte, error) {
	p := make([]byte, size)
	if addr < devices.SystemMMRBase {
		return p, m.Mem.Read(addr, p)
	}
	for i := 0; i < size; {
		width := 4
		if (addr+uint32(i))&3 != 0 || size-i < 4 {
			width = 2
		}
		val, err := m.Bus.Read(addr+uint32(i), width)
		if err != nil {
			return p[:i], err
		}
		for j := 0; j < width && i < size; j++ {
			p[i] = byte(val >> uint(8*j))
			i++
		}
	}
	return p, nil
}

func (m *Machine) MemWrite(addr uint32, p []byte) error {
	if addr < devices.SystemMMRBase {
		return m.Mem.Write(addr, p)
	}
	for i := 0; i < len(p); {
		width := 4
		if (addr+uint32(i))&3 != 0 || len(p)-i < 4 {
			width = 2
		}
		if len(p)-i < width {
			return errors.Errorf("partial MMR write at 0x%08x", addr+uint32(i))
		}
		var val uint32
		for j := 0; j < width; j++ {
			val |= uint32(p[i+j]) << uint(8*j)
		}
		if err := m.Bus.Write(addr+uint32(i), width, val); err != nil {
			return err
		}
		i += width
	}
	return nil
}
