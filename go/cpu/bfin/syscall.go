package bfin

import (
	"github.com/lunixbochs/bfincorn/go/models"
)

// syscall services EXCPT 0 for a user-environment program. P0 holds the
// Linux syscall number, R0-R5 the arguments, and the result or -errno
// returns in R0.
func (m *Machine) syscall() *models.Halt {
	pc := m.Regs.R[REG_PC]
	var args [6]uint32
	for i := range args {
		args[i] = m.Regs.D(i)
	}
	nr := int(m.Regs.P(0))
	ret, ok := m.Kernel.Syscall(nr, args[:])
	if status, exited := m.Kernel.Exited(); exited {
		return models.Exited(pc, status, "exit")
	}
	if !ok {
		m.log.Warnf("0x%08x: unimplemented syscall %d", pc, nr)
	}
	m.Regs.R[REG_R0] = ret
	return nil
}
