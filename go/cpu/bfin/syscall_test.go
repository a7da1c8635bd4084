package bfin

import (
	"bytes"
	"testing"

	"github.com/lunixbochs/bfincorn/go/kernel"
	"github.com/lunixbochs/bfincorn/go/models"
)

const opEXCPT0 = 0x00a0

func syscallMachine(t *testing.T, code ...uint16) (*Machine, *bytes.Buffer) {
	var stdout bytes.Buffer
	m, err := New(&models.Config{Output: &bufCloser{}, Entry: testBase, Stdout: &stdout, Stdin: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Mem.Write(testBase, asm(code...)); err != nil {
		t.Fatal(err)
	}
	return m, &stdout
}

func TestSyscallWriteExit(t *testing.T) {
	m, stdout := syscallMachine(t, program(
		0x6008,   // R0 = 1
		0x6101,   // R1 = 0x20
		0x602a,   // R2 = 5
		0x6820,   // P0 = 4 (write)
		opEXCPT0, // EXCPT 0
		dbga(0, 0, false, 5),
		0x6018, // R0 = 3
		0x6808, // P0 = 1 (exit)
		opEXCPT0,
		opHLT,
	)...)
	if err := m.Mem.Write(0x20, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	halt := run(t, m)
	if halt.Reason != models.HaltExited || halt.Status != 3 {
		t.Fatalf("got %v", halt)
	}
	if halt.PC != testBase+18 {
		t.Errorf("exited at %#x", halt.PC)
	}
	if stdout.String() != "hello" {
		t.Errorf("stdout %q", stdout.String())
	}
}

func TestSyscallUnimplemented(t *testing.T) {
	m, _ := syscallMachine(t, program(
		0x6800, // P0 = 0
		opEXCPT0,
		dbga(0, 0, false, 0xffda), // -ENOSYS
		opHLT,
	)...)
	if halt := run(t, m); halt.Err() != nil {
		t.Fatalf("got %v, R0 = %#x", halt, m.Regs.D(0))
	}
	if m.Regs.D(0) != uint32(0x100000000-kernel.ENOSYS) {
		t.Fatalf("R0 = %#x", m.Regs.D(0))
	}
}

func TestSyscallBrk(t *testing.T) {
	m, _ := syscallMachine(t, program(
		0x6000,   // R0 = 0
		0x6968,   // P0 = 45 (brk)
		opEXCPT0, // EXCPT 0
		opHLT,
	)...)
	m.Kernel.SetBrk(0x3000)
	run(t, m)
	if m.Regs.D(0) != 0x3000 {
		t.Fatalf("brk(0) = %#x", m.Regs.D(0))
	}
}

func TestNoKernelInOSMode(t *testing.T) {
	m, err := New(&models.Config{Output: &bufCloser{}, Entry: testBase, OSMode: true})
	if err != nil {
		t.Fatal(err)
	}
	if m.Kernel != nil {
		t.Fatal("operating environment should not emulate syscalls")
	}
}
