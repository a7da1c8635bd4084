package devices

import "github.com/sirupsen/logrus"

const (
	TCNTL   = 0x0
	TPERIOD = 0x4
	TSCALE  = 0x8
	TCOUNT  = 0xc

	TMPWR    = 1 << 0
	TMREN    = 1 << 1
	TAUTORLD = 1 << 2
	TINT     = 1 << 3

	CoreTimerBase = 0xffe03000
	IVTMR         = 6
)

// CoreTimer counts TCOUNT down once every TSCALE+1 cycles. At zero it sets
// TINT and raises IVTMR on the event controller, optionally reloading from TPERIOD.
type CoreTimer struct {
	sched *Scheduler
	irq   Interrupter
	log   *logrus.Entry

	tcntl, tperiod, tscale, tcount uint32

	// cycle at which tcount was last synced, and the pending expiry
	synced  uint64
	pending *Event
}

func NewCoreTimer(sched *Scheduler, irq Interrupter, log *logrus.Entry) *CoreTimer {
	return &CoreTimer{sched: sched, irq: irq, log: log}
}

func (t *CoreTimer) Name() string { return "core timer" }
func (t *CoreTimer) Base() uint32 { return CoreTimerBase }
func (t *CoreTimer) Size() uint32 { return 0x10 }

func (t *CoreTimer) running() bool {
	return t.tcntl&(TMPWR|TMREN) == TMPWR|TMREN
}

func (t *CoreTimer) period() uint64 {
	return uint64(t.tscale&0xff) + 1
}

// sync folds elapsed cycles into tcount.
func (t *CoreTimer) sync() {
	now := t.sched.Now()
	if t.running() && t.tcount > 0 {
		ticks := (now - t.synced) / t.period()
		if ticks >= uint64(t.tcount) {
			t.tcount = 0
		} else {
			t.tcount -= uint32(ticks)
		}
		t.synced += ticks * t.period()
	} else {
		t.synced = now
	}
}

func (t *CoreTimer) reschedule() {
	t.sched.Cancel(t.pending)
	t.pending = nil
	if !t.running() || t.tcount == 0 {
		return
	}
	delay := uint64(t.tcount)*t.period() - (t.sched.Now() - t.synced)
	t.pending = t.sched.Schedule(delay, t.expire)
}

func (t *CoreTimer) expire() {
	t.pending = nil
	t.tcount = 0
	t.synced = t.sched.Now()
	t.tcntl |= TINT
	if t.log != nil {
		t.log.WithField("ivg", IVTMR).Debug("core timer expired")
	}
	t.irq.RaiseLevel(IVTMR)
	if t.tcntl&TAUTORLD != 0 && t.tperiod != 0 {
		t.tcount = t.tperiod
		t.reschedule()
	}
}

func (t *CoreTimer) ReadRegister(offset uint32, width int) (uint32, error) {
	if err := Require32(t, offset, width, false); err != nil {
		return 0, err
	}
	switch offset {
	case TCNTL:
		return t.tcntl, nil
	case TPERIOD:
		return t.tperiod, nil
	case TSCALE:
		return t.tscale, nil
	case TCOUNT:
		t.sync()
		return t.tcount, nil
	}
	return 0, Missing(t, offset, width, false)
}

func (t *CoreTimer) WriteRegister(offset uint32, width int, value uint32) error {
	if err := Require32(t, offset, width, true); err != nil {
		return err
	}
	t.sync()
	switch offset {
	case TCNTL:
		// TINT is write-1-to-clear
		tint := t.tcntl & TINT
		if value&TINT != 0 && tint != 0 {
			tint = 0
			t.irq.LowerLevel(IVTMR)
		}
		t.tcntl = value&(TMPWR|TMREN|TAUTORLD) | tint
	case TPERIOD:
		t.tperiod = value
		// the count follows the period while the timer is stopped
		if !t.running() {
			t.tcount = value
		}
	case TSCALE:
		t.tscale = value & 0xff
	case TCOUNT:
		t.tcount = value
	default:
		return Missing(t, offset, width, true)
	}
	t.synced = t.sched.Now()
	t.reschedule()
	return nil
}

func (t *CoreTimer) Reset() {
	t.sched.Cancel(t.pending)
	t.pending = nil
	t.tcntl, t.tperiod, t.tscale, t.tcount = 0, 0, 0, 0
	t.synced = t.sched.Now()
}
