package cec

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lunixbochs/bfincorn/go/models"
)

// Reg names the core registers the event controller reads and writes.
type Reg int

const (
	RETI Reg = iota
	RETX
	RETN
	RETE
	SP
	USP
	KSP
	LB0
	LB1
	SEQSTAT
	SYSCFG
)

const SYSCFG_SNEN = 1 << 2

// Core is the event controller's view of the processor.
type Core interface {
	PC() uint32
	// SetPC redirects execution. The current instruction's sequential
	// update is suppressed.
	SetPC(pc uint32)
	// NextPC is the address execution would continue at after the current
	// instruction, following hardware loops.
	NextPC() uint32
	ReadReg(r Reg) uint32
	WriteReg(r Reg, v uint32)
}

// Except is returned by operations that can not complete and must raise a
// synchronous exception instead.
type Except struct {
	Cause int
}

func (e *Except) Error() string {
	return fmt.Sprintf("exception %#x: %s", e.Cause, ExcauseName(e.Cause))
}

type CEC struct {
	Core Core
	EVT  EVT

	IMASK, ILAT, IPEND Levels
	EVTOverride        uint32
	IPRIO              uint32

	// OSMode enables vectoring. Without it exceptions stop the simulation.
	OSMode bool
	// Debug is set when a debugger is attached, EMUEXCPT then stops.
	Debug       bool
	ResetVector uint32

	// LogIFault records the current PC in the instruction fault latch.
	LogIFault func()
	// Notify is called each time a level is vectored to.
	Notify func(ivg IVG, excause int)
	// Syscall services EXCPT 0 outside the operating environment. The PC
	// moves past the EXCPT unless it returns a halt.
	Syscall func() *models.Halt

	pending bool
	log     *logrus.Entry
}

func New(core Core, osMode bool, resetVector uint32, log *logrus.Entry) *CEC {
	c := &CEC{Core: core, OSMode: osMode, ResetVector: resetVector, log: log}
	c.Reset()
	return c
}

func (c *CEC) Reset() {
	c.IMASK = Unmaskable
	c.ILAT = 0
	c.IPEND = RST.bit() | IRPTEN.bit()
	c.EVTOverride = 0
	c.IPRIO = 0
	c.EVT = EVT{}
	c.pending = false
}

func (c *CEC) debugf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.WithField("pc", fmt.Sprintf("0x%08x", c.Core.PC())).Debugf(format, args...)
	}
}

// CurrentIVG is the level now executing, USER if none is active.
func (c *CEC) CurrentIVG() IVG {
	if !c.OSMode {
		return USER
	}
	return c.IPEND.Without(EMU).Without(IRPTEN).Highest()
}

func (c *CEC) IsSupervisor() bool {
	if !c.OSMode {
		return true
	}
	return c.IPEND.Without(EMU).Without(IRPTEN) != 0
}

func (c *CEC) requireSupervisor() error {
	if !c.IsSupervisor() {
		return &Except{VEC_ILL_RES}
	}
	return nil
}

func (c *CEC) excause() int {
	return int(c.Core.ReadReg(SEQSTAT) & SEQSTAT_EXCAUSE)
}

func (c *CEC) setExcause(excause int) {
	seqstat := c.Core.ReadReg(SEQSTAT)
	c.Core.WriteReg(SEQSTAT, seqstat&^SEQSTAT_EXCAUSE|uint32(excause)&SEQSTAT_EXCAUSE)
}

func (c *CEC) setHwErrCause(cause int) {
	seqstat := c.Core.ReadReg(SEQSTAT)
	c.Core.WriteReg(SEQSTAT, seqstat&^SEQSTAT_HWERRCAUSE|uint32(cause)<<SEQSTAT_HWERRCAUSE_SHIFT&SEQSTAT_HWERRCAUSE)
}

func (c *CEC) selfNest() bool {
	return c.Core.ReadReg(SYSCFG)&SYSCFG_SNEN != 0
}

func (c *CEC) writeIMASK(v uint32) {
	c.IMASK = Levels(v)&Maskable | c.IMASK&Unmaskable
}

func (c *CEC) checkPending() {
	c.pending = true
}

// Recheck forces the next Service to look at ILAT, after state was
// replaced wholesale.
func (c *CEC) Recheck() { c.checkPending() }

// Pending reports whether latched levels need another look before the next instruction.
func (c *CEC) Pending() bool { return c.pending }

// Service vectors to the highest latched level that may preempt the current
// one. The machine calls it between instructions.
func (c *CEC) Service() *models.Halt {
	if !c.pending {
		return nil
	}
	c.pending = false
	if !c.OSMode {
		if c.ILAT.Has(IVHW) {
			c.ILAT.Clear(IVHW)
			return models.Stopped(c.Core.PC(), models.SIGBUS, "hardware error")
		}
		return nil
	}
	return c.raise(Current)
}

// Raise requests level ivg. It either vectors now or leaves the level latched.
func (c *CEC) Raise(ivg IVG) *models.Halt {
	return c.raise(ivg)
}

func (c *CEC) raise(ivg IVG) *models.Halt {
	curr := c.CurrentIVG()
	irpten := c.IPEND.Has(IRPTEN)
	snen := c.selfNest()

	c.debugf("processing request for %s while at %s", ivg, curr)

	if ivg == Current {
		if irpten {
			return nil
		}
		ivg = (c.ILAT & c.IMASK).Highest()
		if ivg == USER || ivg > curr || (!snen && ivg == curr) {
			return nil
		}
	}

	c.ILAT.Set(ivg)

	switch {
	case ivg <= EVX:
		// EMU and RST are always processed, anything else at or above the
		// current level is a double fault
		if ivg != EMU && ivg != RST && curr <= ivg {
			c.setExcause(VEC_UNCOV)
			if c.log != nil {
				c.log.WithField("ivg", ivg).Errorf("double fault at 0x%08x", c.Core.PC())
			}
			return models.Stopped(c.Core.PC(), models.SIGABRT, "double fault")
		}
	case irpten && curr != USER:
		// globally masked
		return nil
	case !c.IMASK.Has(ivg):
		return nil
	case ivg < curr || (snen && ivg == curr):
	default:
		return nil
	}
	return c.vector(ivg, curr)
}

func (c *CEC) vector(ivg, curr IVG) *models.Halt {
	c.IPEND.Set(ivg)
	c.ILAT.Clear(ivg)

	oldpc := c.Core.PC()
	switch ivg {
	case EMU:
		c.Core.WriteReg(RETE, oldpc)
		c.IPEND.Clear(EMU)
		return models.Stopped(oldpc, models.SIGTRAP, "emulation event")
	case RST:
		return models.Exited(oldpc, 0, "core reset")
	case NMI:
		c.Core.WriteReg(RETN, oldpc)
	case EVX:
		// service exceptions return past the excepting instruction
		if c.excause() >= 0x20 {
			c.Core.WriteReg(RETX, oldpc)
		} else {
			c.Core.WriteReg(RETX, c.Core.NextPC())
		}
	case IRPTEN:
		c.debugf("raise of IRPTEN ignored")
	default:
		ret := oldpc
		if ivg == curr {
			ret |= 1
		}
		c.Core.WriteReg(RETI, ret)
	}

	if Levels(c.EVTOverride)&0xff80&ivg.bit() != 0 {
		c.Core.SetPC(c.ResetVector)
	} else {
		c.Core.SetPC(c.EVT[ivg])
	}
	c.debugf("vectoring to %s at 0x%08x", ivg, c.Core.PC())
	if ivg >= IVHW {
		c.IPEND.Set(IRPTEN)
	}

	// leaving user mode forces the loop bottom low bits and loads the kernel stack
	if curr == USER {
		for _, lb := range []Reg{LB0, LB1} {
			c.Core.WriteReg(lb, c.Core.ReadReg(lb)|1)
		}
		c.Core.WriteReg(USP, c.Core.ReadReg(SP))
		c.Core.WriteReg(SP, c.Core.ReadReg(KSP))
	}
	if c.Notify != nil {
		c.Notify(ivg, c.excause())
	}
	return nil
}

// Latch marks ivg pending. It is looked at again before the next instruction.
func (c *CEC) Latch(ivg IVG) {
	c.ILAT.Set(ivg)
	c.checkPending()
}

func (c *CEC) HwErr(cause int) {
	c.setHwErrCause(cause)
	c.Latch(IVHW)
}

// RaiseLevel and LowerLevel are the port event interface used by devices.
func (c *CEC) RaiseLevel(ivg int) {
	c.debugf("port event raised %s", IVG(ivg))
	c.Latch(IVG(ivg))
}

// LowerLevel withdraws a request that has not been vectored yet.
func (c *CEC) LowerLevel(ivg int) {
	c.ILAT.Clear(IVG(ivg))
}

func (c *CEC) retReg(ivg IVG) Reg {
	switch ivg {
	case EMU:
		return RETE
	case NMI:
		return RETN
	case EVX:
		return RETX
	}
	return RETI
}

// Return implements RTI/RTX/RTN/RTE. Current returns from the active level.
func (c *CEC) Return(ivg IVG) error {
	if !c.OSMode {
		c.Core.SetPC(c.Core.ReadReg(c.retReg(ivg)))
		return nil
	}
	c.IPEND.Clear(EMU)
	curr := c.CurrentIVG()
	if ivg == Current {
		ivg = curr
	}
	c.debugf("returning from %s (should be %s)", curr, ivg)

	if curr == USER {
		return &Except{VEC_ILL_RES}
	}
	if ivg < 0 || ivg > IVG15 {
		return errors.Errorf("return from level %d out of range", int(ivg))
	}
	switch ivg {
	case EMU, NMI, EVX:
		if curr != ivg {
			return &Except{VEC_ILL_RES}
		}
	case IRPTEN:
		return models.Stopped(c.Core.PC(), models.SIGABRT, "return from IRPTEN")
	default:
		if curr == EMU || curr == NMI || curr == EVX {
			return &Except{VEC_ILL_RES}
		}
	}

	newpc := c.Core.ReadReg(c.retReg(ivg))
	snen := newpc&1 != 0
	c.Core.SetPC(newpc &^ 1)
	if !snen {
		c.IPEND.Clear(ivg)
	}
	if ivg >= IVHW || ivg == RST {
		c.IPEND.Clear(IRPTEN)
	}
	if c.CurrentIVG() == USER {
		for _, lb := range []Reg{LB0, LB1} {
			c.Core.WriteReg(lb, c.Core.ReadReg(lb)&^1)
		}
		c.Core.WriteReg(KSP, c.Core.ReadReg(SP))
		c.Core.WriteReg(SP, c.Core.ReadReg(USP))
	}
	c.checkPending()
	return nil
}

// Cli masks every maskable level and returns the previous IMASK.
func (c *CEC) Cli() (uint32, error) {
	if !c.OSMode {
		return 0, nil
	}
	if err := c.requireSupervisor(); err != nil {
		return 0, err
	}
	old := c.IMASK
	c.writeIMASK(0)
	c.debugf("CLI changed IMASK from %#x to %#x", uint32(old), uint32(c.IMASK))
	return uint32(old), nil
}

func (c *CEC) Sti(mask uint32) error {
	if !c.OSMode {
		return nil
	}
	if err := c.requireSupervisor(); err != nil {
		return err
	}
	old := c.IMASK
	c.writeIMASK(mask)
	c.debugf("STI changed IMASK from %#x to %#x", uint32(old), uint32(c.IMASK))
	c.checkPending()
	return nil
}

// PushRETI re-enables nesting by clearing IRPTEN.
func (c *CEC) PushRETI() {
	if !c.OSMode {
		return
	}
	c.IPEND.Clear(IRPTEN)
	c.checkPending()
}

func (c *CEC) PopRETI() {
	if !c.OSMode {
		return
	}
	c.IPEND.Set(IRPTEN)
}

// Exception delivers EXCAUSE excp. Simulator-only causes stop or exit
// directly. Outside OS mode real causes are mapped to host signals.
func (c *CEC) Exception(excp int) *models.Halt {
	pc := c.Core.PC()
	if c.log != nil {
		c.log.WithFields(logrus.Fields{"excause": fmt.Sprintf("%#x", excp), "ivg": c.CurrentIVG()}).Debugf("exception: %s", ExcauseName(excp))
	}
	switch excp {
	case VEC_SIM_HLT:
		return models.Exited(pc, 0, "halt")
	case VEC_SIM_ABORT:
		return models.Exited(pc, 1, "abort")
	case VEC_SIM_TRAP:
		// step over EMUEXCPT
		c.Core.SetPC(pc + 2)
		if c.Debug {
			return models.Stopped(pc+2, models.SIGTRAP, "emulation exception")
		}
		return nil
	case VEC_SIM_DBGA:
		if c.Debug {
			return models.Stopped(pc, models.SIGTRAP, "assertion failed")
		}
		return models.Exited(pc, 2, "assertion failed")
	}

	if excp <= 0x3f {
		c.setExcause(excp)
		if c.OSMode {
			switch excp {
			case VEC_MISALI_I, VEC_MISALI_D, VEC_CPLB_I_M, VEC_CPLB_M,
				VEC_CPLB_I_VL, VEC_CPLB_VL, VEC_CPLB_I_MHIT, VEC_CPLB_MHIT:
			default:
				if c.LogIFault != nil {
					c.LogIFault()
				}
			}
			return c.raise(EVX)
		}
	}

	sig := models.SIGILL
	switch excp {
	case VEC_SYS:
		if c.Syscall == nil {
			break
		}
		if h := c.Syscall(); h != nil {
			return h
		}
		c.Core.SetPC(pc + 2)
		return nil
	case VEC_EXCPT01:
		sig = models.SIGTRAP
	case VEC_UNDEF_I:
		sig = models.SIGILL
	case VEC_ILL_RES, VEC_MISALI_I:
		sig = models.SIGBUS
	case VEC_CPLB_M, VEC_CPLB_I_M:
		sig = models.SIGSEGV
	default:
		if c.log != nil {
			c.log.Warnf("unhandled exception %#x at 0x%08x (%s)", excp, pc, ExcauseName(excp))
		}
	}
	return models.Stopped(pc, sig, ExcauseName(excp))
}
