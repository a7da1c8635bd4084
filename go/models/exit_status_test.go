package models

import (
	"testing"
)

func TestHaltErr(t *testing.T) {
	var none *Halt
	if err := none.Err(); err != nil {
		t.Fatalf("nil halt: %v", err)
	}
	if err := Exited(0x100, 0, "HLT").Err(); err != nil {
		t.Fatalf("clean exit: %v", err)
	}
	if err := Exited(0x100, 2, "DBGA").Err(); err != ExitStatus(2) {
		t.Fatalf("failing exit: %v", err)
	}
	h := Stopped(0x100, SIGSEGV, "fault")
	if err := h.Err(); err != h {
		t.Fatalf("stop: %v", err)
	}
}
