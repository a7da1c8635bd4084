package models

import "fmt"

type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("exit %d", e)
}

// signal numbers as reported to a remote debugger
const (
	SIGINT  = 2
	SIGILL  = 4
	SIGTRAP = 5
	SIGABRT = 6
	SIGBUS  = 7
	SIGSEGV = 11
)

type HaltReason int

const (
	// HaltExited ends the simulation with an exit status.
	HaltExited HaltReason = iota
	// HaltStopped suspends the simulation with a signal; it can be resumed.
	HaltStopped
)

// Halt is returned up through the run loop when the machine can not continue.
// A nil *Halt means keep going.
type Halt struct {
	Reason HaltReason
	Status int
	Signal int
	PC     uint32
	Msg    string
}

func Exited(pc uint32, status int, msg string) *Halt {
	return &Halt{Reason: HaltExited, Status: status, PC: pc, Msg: msg}
}

func Stopped(pc uint32, sig int, msg string) *Halt {
	return &Halt{Reason: HaltStopped, Signal: sig, PC: pc, Msg: msg}
}

func (h *Halt) Error() string {
	if h.Reason == HaltExited {
		return fmt.Sprintf("exited with status %d at 0x%08x: %s", h.Status, h.PC, h.Msg)
	}
	return fmt.Sprintf("stopped with signal %d at 0x%08x: %s", h.Signal, h.PC, h.Msg)
}

// Err converts a halt into the error a command line front end should return.
// A clean exit is nil.
func (h *Halt) Err() error {
	if h == nil {
		return nil
	}
	if h.Reason == HaltExited {
		if h.Status == 0 {
			return nil
		}
		return ExitStatus(h.Status)
	}
	return h
}
