package models

// Debuggee is the seam an external debugger or test harness drives a core through.
type Debuggee interface {
	RegisterNames() []string
	RegisterIndex(name string) (int, bool)
	ReadRegister(idx int) (uint32, error)
	WriteRegister(idx int, val uint32) error

	ReadPC() uint32
	WritePC(pc uint32)
	IsSupervisorMode() bool

	// SingleStep executes one instruction, stepping over atomic regions as a unit.
	SingleStep() (*Halt, error)
	// Run executes until a halt or until Stop is called.
	Run() (*Halt, error)
	Stop()

	SetBreakpoint(addr uint32)
	ClearBreakpoint(addr uint32)
	Breakpoints() []uint32

	MemRead(addr uint32, size int) ([]byte, error)
	MemWrite(addr uint32, p []byte) error
	Hooks() *Hooks
}
