package devices

import (
	"testing"

	"github.com/pkg/errors"
)

type fakeIRQ struct {
	raised  []int
	lowered []int
}

func (f *fakeIRQ) RaiseLevel(ivg int) { f.raised = append(f.raised, ivg) }
func (f *fakeIRQ) LowerLevel(ivg int) { f.lowered = append(f.lowered, ivg) }

func TestSchedulerOrder(t *testing.T) {
	var s Scheduler
	var got []int
	s.Schedule(10, func() { got = append(got, 2) })
	s.Schedule(5, func() { got = append(got, 1) })
	s.Schedule(10, func() { got = append(got, 3) })
	e := s.Schedule(7, func() { got = append(got, 99) })
	s.Cancel(e)
	s.Advance(9)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("after 9 cycles: %v", got)
	}
	s.Advance(1)
	if len(got) != 3 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("after 10 cycles: %v", got)
	}
	if s.Now() != 10 {
		t.Fatalf("now = %d", s.Now())
	}
	if _, ok := s.Next(); ok {
		t.Fatal("queue should be empty")
	}
}

func TestBusInvalidMMR(t *testing.T) {
	var bus Bus
	var sched Scheduler
	irq := &fakeIRQ{}
	if err := bus.Attach(NewCoreTimer(&sched, irq, nil)); err != nil {
		t.Fatal(err)
	}
	if err := bus.Attach(NewCoreTimer(&sched, irq, nil)); err == nil {
		t.Fatal("overlapping attach should fail")
	}
	if _, err := bus.Read(0xffe04000, 4); errors.Cause(err) != ErrInvalidMMR {
		t.Fatalf("unmapped read: %v", err)
	}
	if _, err := bus.Read(CoreTimerBase+TCOUNT, 2); errors.Cause(err) != ErrInvalidMMR {
		t.Fatalf("16-bit timer read: %v", err)
	}
	if err := bus.Write(CoreTimerBase+TPERIOD, 4, 100); err != nil {
		t.Fatal(err)
	}
	v, err := bus.Read(CoreTimerBase+TCOUNT, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 100 {
		t.Fatalf("tcount follows tperiod while stopped: got %d", v)
	}
}

func TestCoreTimerExpire(t *testing.T) {
	var sched Scheduler
	irq := &fakeIRQ{}
	tm := NewCoreTimer(&sched, irq, nil)
	tm.WriteRegister(TSCALE, 4, 1)
	tm.WriteRegister(TPERIOD, 4, 10)
	tm.WriteRegister(TCNTL, 4, TMPWR|TMREN|TAUTORLD)

	sched.Advance(8)
	if v, _ := tm.ReadRegister(TCOUNT, 4); v != 6 {
		t.Fatalf("tcount after 8 cycles = %d", v)
	}
	sched.Advance(12)
	if len(irq.raised) != 1 || irq.raised[0] != IVTMR {
		t.Fatalf("raised = %v", irq.raised)
	}
	ctl, _ := tm.ReadRegister(TCNTL, 4)
	if ctl&TINT == 0 {
		t.Fatal("TINT not set")
	}
	if v, _ := tm.ReadRegister(TCOUNT, 4); v != 10 {
		t.Fatalf("autoreload tcount = %d", v)
	}
	tm.WriteRegister(TCNTL, 4, ctl)
	if ctl, _ = tm.ReadRegister(TCNTL, 4); ctl&TINT != 0 {
		t.Fatal("TINT should be write-1-to-clear")
	}
	if len(irq.lowered) != 1 || irq.lowered[0] != IVTMR {
		t.Fatalf("lowered = %v", irq.lowered)
	}
	sched.Advance(20)
	if len(irq.raised) != 2 {
		t.Fatalf("second expiry: raised = %v", irq.raised)
	}
}

func TestSICForward(t *testing.T) {
	irq := &fakeIRQ{}
	s := NewSIC(irq, nil)
	// line 3 -> IVG7+2, line 4 -> IVG7+2
	if err := s.WriteRegister(SIC_IAR0, 4, 0x00022000); err != nil {
		t.Fatal(err)
	}
	s.SetLine(3, true)
	if len(irq.raised) != 0 {
		t.Fatal("masked line forwarded")
	}
	s.WriteRegister(SIC_IMASK, 4, 1<<3|1<<4)
	if len(irq.raised) != 1 || irq.raised[0] != 9 {
		t.Fatalf("raised = %v", irq.raised)
	}
	s.SetLine(4, true)
	s.SetLine(3, false)
	if len(irq.lowered) != 0 {
		t.Fatalf("level still has a source: lowered = %v", irq.lowered)
	}
	s.SetLine(4, false)
	if len(irq.lowered) != 1 || irq.lowered[0] != 9 {
		t.Fatalf("lowered = %v", irq.lowered)
	}
	if _, err := s.ReadRegister(SIC_SYSCR, 4); errors.Cause(err) != ErrInvalidMMR {
		t.Fatalf("32-bit SYSCR read: %v", err)
	}
	if v, err := s.ReadRegister(SIC_IWR, 4); err != nil || v != 0xffffffff {
		t.Fatalf("IWR = %#x, %v", v, err)
	}
}
