package bfin

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/cpu/bfin/mmu"
	"github.com/lunixbochs/bfincorn/go/devices"
	"github.com/lunixbochs/bfincorn/go/kernel"
	"github.com/lunixbochs/bfincorn/go/models"
	"github.com/lunixbochs/bfincorn/go/models/mem"
	"github.com/lunixbochs/bfincorn/go/models/trace"
)

const Arch = "bfin"

type parallelGroup int

const (
	groupNone parallelGroup = iota
	group0
	group1
	group2
)

// Machine is a single Blackfin core with its memory, event controller, MMU
// and the core-local devices.
type Machine struct {
	Regs  RegFile
	Mem   *mem.Mem
	Bus   *devices.Bus
	Sched *devices.Scheduler
	CEC   *cec.CEC
	MMU   *mmu.MMU
	Timer *devices.CoreTimer
	SIC   *devices.SIC
	// Kernel emulates Linux syscalls outside the operating environment.
	Kernel *kernel.LinuxKernel

	InsCount uint64

	cfg   *models.Config
	log   *logrus.Entry
	hooks models.Hooks
	trace *trace.TraceWriter

	// per instruction state, reset by Step
	wbq        wbQueue
	astat      uint32
	vInternal  bool
	group      parallelGroup
	multiPC    uint32
	insnLen    uint32
	didJump    bool
	cycleDelay uint64
	disAlgn    bool
	halt       *models.Halt
	words      [4]uint16
	nwords     int

	breaks map[uint32]bool
	stop   int32
	// gate serializes debugger requests against a running core
	gate sync.Mutex
}

// New builds a machine from cfg, maps its memory regions and attaches the
// core devices. The machine is returned freshly reset.
func New(cfg *models.Config) (*Machine, error) {
	cfg.Init()
	m := &Machine{
		cfg:    cfg,
		log:    cfg.Logger("bfin"),
		Mem:    mem.New(),
		Bus:    &devices.Bus{},
		Sched:  &devices.Scheduler{},
		breaks: make(map[uint32]bool),
	}
	for _, r := range cfg.Regions {
		if _, err := m.Mem.Map(r.Addr, r.Size, r.Prot, r.Name); err != nil {
			return nil, errors.Wrap(err, "mapping memory")
		}
	}
	m.CEC = cec.New(core{m}, cfg.OSMode, cfg.ResetVector, cfg.Logger("cec"))
	m.CEC.Debug = cfg.Debug
	m.CEC.LogIFault = func() {
		m.MMU.LogIFault(m.Regs.R[REG_PC], m.CEC.IsSupervisor())
	}
	m.CEC.Notify = m.notify
	if !cfg.OSMode {
		m.Kernel = kernel.NewLinuxKernel(m, cfg.Stdin, cfg.Stdout, cfg.Stderr, cfg.Logger("kernel"))
		m.Kernel.Root = cfg.FsRoot
		m.CEC.Syscall = m.syscall
	}
	m.MMU = mmu.New(cfg.OSMode, cfg.Logger("mmu"))
	m.MMU.Mem = m.Mem
	m.Timer = devices.NewCoreTimer(m.Sched, m.CEC, cfg.Logger("timer"))
	m.SIC = devices.NewSIC(m.CEC, cfg.Logger("sic"))

	devs := append(m.CEC.Devices(), m.MMU.Devices()...)
	devs = append(devs, m.Timer, m.SIC)
	for _, d := range devs {
		if err := m.Bus.Attach(d); err != nil {
			return nil, err
		}
	}
	m.Reset()
	return m, nil
}

func (m *Machine) Config() *models.Config { return m.cfg }

// SetTrace starts recording executed instructions and events to t.
func (m *Machine) SetTrace(t *trace.TraceWriter) { m.trace = t }

// Reset returns the core to its power-on state. Memory contents are kept.
func (m *Machine) Reset() {
	m.Regs = RegFile{}
	m.Sched.Reset()
	m.Bus.Reset()
	m.CEC.Reset()
	m.MMU.Reset()
	if m.cfg.SelfNest {
		m.Regs.R[REG_SYSCFG] |= SYSCFG_SNEN
	}
	if m.cfg.Entry != 0 {
		m.Regs.R[REG_PC] = m.cfg.Entry
	} else {
		m.Regs.R[REG_PC] = m.cfg.ResetVector
	}
	if m.cfg.OSMode && m.cfg.EnterUser {
		m.CEC.IPEND = 0
	}
	m.InsCount = 0
	m.wbq.reset()
	m.insnLen = 0
}

// core is the event controller's view of the machine.
type core struct{ m *Machine }

var coreRegs = [...]int{
	cec.RETI:    REG_RETI,
	cec.RETX:    REG_RETX,
	cec.RETN:    REG_RETN,
	cec.RETE:    REG_RETE,
	cec.SP:      REG_SP,
	cec.USP:     REG_USP,
	cec.KSP:     REG_KSP,
	cec.LB0:     REG_LB0,
	cec.LB1:     REG_LB1,
	cec.SEQSTAT: REG_SEQSTAT,
	cec.SYSCFG:  REG_SYSCFG,
}

func (c core) PC() uint32 { return c.m.Regs.R[REG_PC] }

func (c core) SetPC(pc uint32) {
	c.m.Regs.R[REG_PC] = pc
	c.m.didJump = true
}

func (c core) NextPC() uint32 {
	return c.m.hwloopNextPC(c.m.Regs.R[REG_PC], c.m.insnLen)
}

func (c core) ReadReg(r cec.Reg) uint32     { return c.m.Regs.R[coreRegs[r]] }
func (c core) WriteReg(r cec.Reg, v uint32) { c.m.Regs.R[coreRegs[r]] = v }

func (m *Machine) notify(ivg cec.IVG, excause int) {
	m.hooks.OnIntr(int(ivg), excause)
	if m.trace != nil && m.cfg.Trace.Evt {
		m.tracePack(&trace.Record{Kind: trace.REC_EVENT, PC: m.Regs.R[REG_PC], A: uint32(ivg), B: uint32(excause)})
	}
}

func (m *Machine) tracePack(rec *trace.Record) {
	if err := m.trace.Pack(rec); err != nil {
		m.log.WithError(err).Error("trace write failed, tracing disabled")
		m.trace = nil
	}
}

// hwloopNextPC follows a hardware loop back to its top when pc is a loop
// bottom with iterations left.
func (m *Machine) hwloopNextPC(pc, insnLen uint32) uint32 {
	if insnLen == 0 {
		return pc
	}
	for i := 1; i >= 0; i-- {
		if m.Regs.LC(i) > 1 && pc == m.Regs.LB(i) {
			return m.Regs.LT(i)
		}
	}
	return pc + insnLen
}

func (m *Machine) cyclesInc(inc uint64) {
	if m.Regs.R[REG_SYSCFG]&SYSCFG_CCEN == 0 {
		return
	}
	cycles := m.Regs.ExtendedCycles() + inc
	m.Regs.R[REG_CYCLES] = uint32(cycles)
	m.Regs.R[REG_CYCLES2SHD] = uint32(cycles >> 32)
}

// jump queues a change of flow to target.
func (m *Machine) jump(target uint32) {
	if m.log != nil && m.cfg.Trace.Ins {
		m.log.WithField("pc", fmt.Sprintf("0x%08x", m.Regs.R[REG_PC])).Debugf("branch to 0x%08x", target)
	}
	m.wb(REG_PC, target)
	m.didJump = true
}

func (m *Machine) ssstepArmed() bool {
	if !m.cfg.OSMode || m.Regs.R[REG_SYSCFG]&SYSCFG_SSSTEP == 0 {
		return false
	}
	ivg := m.CEC.CurrentIVG()
	return ivg == cec.USER || ivg > cec.EVX
}

// Step services pending events, then executes one instruction or parallel
// group. A nil Halt means the machine can keep going.
func (m *Machine) Step() (*models.Halt, error) {
	if halt := m.CEC.Service(); halt != nil {
		return halt, nil
	}
	pc := m.Regs.R[REG_PC]
	if m.hooks.HasCode() {
		m.hooks.OnCode(pc, m.peekLen(pc))
		// a code hook may ask us to stop before this instruction runs
		if atomic.LoadInt32(&m.stop) != 0 {
			return nil, nil
		}
	}
	ssstep := m.ssstepArmed()

	m.didJump = false
	m.wbq.reset()
	m.astat = m.Regs.R[REG_ASTAT]
	m.vInternal = false
	m.cycleDelay = 1
	m.insnLen = 0
	m.group = groupNone
	m.disAlgn = false
	m.halt = nil
	m.nwords = 0

	n, err := m.exec(pc)
	if m.trace != nil && m.cfg.Trace.Ins {
		m.tracePack(&trace.Record{Kind: trace.REC_INS, PC: pc, Len: uint8(n), Words: m.words})
	}
	if err != nil {
		m.wbq.reset()
		switch e := errors.Cause(err).(type) {
		case *cec.Except:
			halt := m.CEC.Exception(e.Cause)
			m.insnLen = 0
			return halt, nil
		case *models.Halt:
			m.insnLen = 0
			return e, nil
		}
		return nil, errors.Wrapf(err, "executing at 0x%08x", pc)
	}
	if err := m.commit(); err != nil {
		return nil, errors.Wrapf(err, "committing at 0x%08x", pc)
	}
	m.cyclesInc(m.cycleDelay)

	if !m.didJump {
		m.Regs.R[REG_PC] = m.hwloopNextPC(pc, n)
	}
	for i := 1; i >= 0; i-- {
		if lc := m.Regs.LC(i); lc != 0 && pc == m.Regs.LB(i) {
			m.Regs.R[REG_LC0+i*3] = lc - 1
			if lc-1 != 0 {
				break
			}
		}
	}
	m.InsCount++
	m.insnLen = 0
	m.Sched.Advance(m.cycleDelay)

	if m.halt != nil {
		return m.halt, nil
	}
	if ssstep {
		if ivg := m.CEC.CurrentIVG(); ivg == cec.USER || ivg > cec.EVX {
			return m.CEC.Exception(cec.VEC_STEP), nil
		}
	}
	return nil, nil
}

// peekLen returns the length of the instruction at pc without side effects.
func (m *Machine) peekLen(pc uint32) int {
	iw0, err := m.Mem.ReadUint(pc, 2, 0)
	if err != nil {
		return 2
	}
	return InsnLen(uint16(iw0))
}

// Run executes until the machine halts, a breakpoint is reached, the
// instruction limit runs out or Stop is called.
func (m *Machine) Run() (*models.Halt, error) {
	m.gate.Lock()
	defer m.gate.Unlock()
	first := true
	for {
		pc := m.Regs.R[REG_PC]
		if atomic.CompareAndSwapInt32(&m.stop, 1, 0) {
			return models.Stopped(pc, models.SIGINT, "interrupted"), nil
		}
		if !first && m.breaks[pc] {
			return models.Stopped(pc, models.SIGTRAP, "breakpoint"), nil
		}
		first = false
		if m.cfg.MaxIns > 0 && m.InsCount >= m.cfg.MaxIns {
			return models.Stopped(pc, models.SIGTRAP, "instruction limit reached"), nil
		}
		halt, err := m.Step()
		if err != nil {
			return nil, err
		}
		if halt != nil {
			m.traceHalt(halt)
			return halt, nil
		}
	}
}

func (m *Machine) traceHalt(h *models.Halt) {
	if m.trace == nil {
		return
	}
	b := uint32(h.Status)
	if h.Reason == models.HaltStopped {
		b = uint32(h.Signal)
	}
	m.tracePack(&trace.Record{Kind: trace.REC_HALT, PC: h.PC, A: uint32(h.Reason), B: b})
}

// Stop asks a running core to return from Run before its next instruction.
func (m *Machine) Stop() {
	atomic.StoreInt32(&m.stop, 1)
}

func (m *Machine) SetBreakpoint(addr uint32) {
	m.gate.Lock()
	m.breaks[addr] = true
	m.gate.Unlock()
}

func (m *Machine) ClearBreakpoint(addr uint32) {
	m.gate.Lock()
	delete(m.breaks, addr)
	m.gate.Unlock()
}

func (m *Machine) Breakpoints() []uint32 {
	m.gate.Lock()
	defer m.gate.Unlock()
	out := make([]uint32, 0, len(m.breaks))
	for addr := range m.breaks {
		out = append(out, addr)
	}
	return out
}

func (m *Machine) Hooks() *models.Hooks { return &m.hooks }
