package mmu

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/devices"
)

// CPLB data bits
const (
	CPLB_VALID    = 0x00001
	CPLB_LOCK     = 0x00002
	CPLB_USER_RD  = 0x00004
	CPLB_USER_WR  = 0x00008
	CPLB_SUPV_WR  = 0x00010
	CPLB_L1SRAM   = 0x00020
	CPLB_DIRTY    = 0x00080
	CPLB_L1_CHBL  = 0x01000
	CPLB_I_CHBL   = 0x01000
	CPLB_WT       = 0x04000
	CPLB_PAGESIZE = 0x30000

	// DMEM_CONTROL / IMEM_CONTROL
	ENCPLB = 0x2

	L1CacheBytes = 32
)

var pageSizes = [4]uint32{0x400, 0x1000, 0x100000, 0x400000}

type CPLB struct {
	Addr uint32
	Data uint32
}

func (c CPLB) Valid() bool { return c.Data&CPLB_VALID != 0 }

func (c CPLB) PageSize() uint32 {
	return pageSizes[(c.Data&CPLB_PAGESIZE)>>16]
}

func (c CPLB) Contains(addr uint32) bool {
	return addr >= c.Addr && uint64(addr) < uint64(c.Addr)+uint64(c.PageSize())
}

// Latch is a fault status/address register pair.
type Latch struct {
	Status uint32
	Addr   uint32
}

// Space is one side (instruction or data) of the MMU.
type Space struct {
	Control uint32
	CPLB    [16]CPLB
	Fault   Latch

	TestCommand uint32
	TestData    [2]uint32
}

func (s *Space) Enabled() bool { return s.Control&ENCPLB != 0 }

func (s *Space) reset() {
	*s = Space{Control: 1}
}

type FaultKind int

const (
	None FaultKind = iota
	Misaligned
	Miss
	Violation
	MultiHit
	// HwErrMiss is delivered as a hardware error instead of an exception.
	HwErrMiss
	IllRes
)

var faultNames = []string{"none", "misaligned", "miss", "violation", "multiple hits", "hwerr miss", "illegal resource"}

func (k FaultKind) String() string {
	if int(k) < len(faultNames) {
		return faultNames[k]
	}
	return fmt.Sprintf("FaultKind(%d)", int(k))
}

type Fault struct {
	Kind    FaultKind
	Excause int
	Inst    bool
	Addr    uint32
}

func (f Fault) OK() bool { return f.Kind == None }

func (f Fault) String() string {
	side := "data"
	if f.Inst {
		side = "inst"
	}
	return fmt.Sprintf("%s %s at 0x%08x (excause %#x)", side, f.Kind, f.Addr, f.Excause)
}

// Access describes one memory transaction to validate.
type Access struct {
	Addr  uint32
	Size  int
	Write bool
	Inst  bool
	Supv  bool
	// DAG1 is set for the second load/store slot of a parallel group.
	DAG1 bool
	// PC is recorded in the instruction fault latch.
	PC uint32
}

// exceptions indexed by the hit classification
var (
	iexcps = [4]int{cec.VEC_CPLB_I_M, cec.VEC_CPLB_I_VL, cec.VEC_CPLB_I_MHIT, cec.VEC_MISALI_I}
	dexcps = [4]int{cec.VEC_CPLB_M, cec.VEC_CPLB_VL, cec.VEC_CPLB_MHIT, cec.VEC_MISALI_D}
	kinds  = [4]FaultKind{Miss, Violation, MultiHit, Misaligned}
)

const (
	hitMiss = iota
	hitViolation
	hitMulti
	hitMisaligned
	hitHwErr

	implicitValid   = -1
	implicitUnknown = -2
)

type MMU struct {
	// OSMode enables the CPLB tables and fault latches. Without it only
	// alignment and the implicit regions are checked.
	OSMode   bool
	SRAMBase uint32
	D, I     Space

	// Mem backs DTEST_COMMAND indirect L1 access. May be nil.
	Mem interface {
		Read(addr uint32, p []byte) error
		Write(addr uint32, p []byte) error
	}

	log *logrus.Entry
}

func New(osMode bool, log *logrus.Entry) *MMU {
	m := &MMU{OSMode: osMode, log: log}
	m.Reset()
	return m
}

func (m *MMU) Reset() {
	m.SRAMBase = 0xff800000
	m.D.reset()
	m.I.reset()
}

func (m *MMU) space(inst bool) *Space {
	if inst {
		return &m.I
	}
	return &m.D
}

// implicit classifies addresses no CPLB covers.
func implicit(addr uint32, inst bool, size int, supv, dag1 bool) int {
	l1 := addr&0xff000000 == 0xff000000
	amask := addr & 0xfff00000
	if size > 1 && addr&uint32(size-1) != 0 {
		return hitMisaligned
	}
	// MMRs are never executable, and only the supervisor may use them
	if addr >= devices.SystemMMRBase {
		if inst {
			return hitMiss
		} else if !supv || dag1 {
			return hitViolation
		}
		return implicitValid
	} else if inst {
		if l1 {
			if amask == 0xffa00000 {
				return implicitValid
			}
			return hitViolation
		}
	} else if l1 {
		if amask != 0xffa00000 {
			return implicitValid
		}
		return hitHwErr
	}
	return implicitUnknown
}

// LogIFault records a fault on the instruction side without a CPLB hit.
func (m *MMU) LogIFault(pc uint32, supv bool) {
	m.I.Fault.Addr = pc
	m.I.Fault.Status = b2u(supv) << 17
}

func (m *MMU) logFault(a Access, miss bool, faults uint32) {
	if !m.OSMode {
		return
	}
	// the instruction latch is always updated
	if !a.Inst {
		m.LogIFault(a.PC, a.Supv)
	}
	s := m.space(a.Inst)
	s.Fault.Addr = a.Addr
	s.Fault.Status = b2u(miss)<<19 | b2u(a.DAG1)<<18 | b2u(a.Supv)<<17 | b2u(a.Write)<<16 | faults
}

func (m *MMU) fault(a Access, hits int) Fault {
	excps := dexcps
	if a.Inst {
		excps = iexcps
	}
	f := Fault{Kind: kinds[hits], Excause: excps[hits], Inst: a.Inst, Addr: a.Addr}
	if m.log != nil {
		m.log.WithFields(logrus.Fields{"addr": fmt.Sprintf("0x%08x", a.Addr), "fault": f.Kind}).Debug("cplb fault")
	}
	return f
}

// CheckAddress validates an access. Misalignment is reported first, then
// the CPLB table, then the implicit regions. Faults update the latches.
func (m *MMU) CheckAddress(a Access) Fault {
	if a.Size > 1 && a.Addr&uint32(a.Size-1) != 0 {
		m.logFault(a, false, 0)
		return m.fault(a, hitMisaligned)
	}
	if !m.OSMode {
		switch ret := implicit(a.Addr, a.Inst, a.Size, a.Supv, a.DAG1); {
		case ret < 0:
			return Fault{}
		case a.Addr >= devices.SystemMMRBase:
			return Fault{Kind: IllRes, Excause: cec.VEC_ILL_RES, Inst: a.Inst, Addr: a.Addr}
		default:
			return Fault{Kind: HwErrMiss, Inst: a.Inst, Addr: a.Addr}
		}
	}

	s := m.space(a.Inst)
	var faults uint32
	hits := 0
	violation := false
	if !s.Enabled() {
		hits = 1
	} else {
		for i, c := range s.CPLB {
			if !c.Valid() || !c.Contains(a.Addr) {
				continue
			}
			hits++
			faults |= 1 << uint(i)
			if a.Write {
				if !a.Supv && c.Data&CPLB_USER_WR == 0 {
					violation = true
				}
				if a.Supv && c.Data&CPLB_SUPV_WR == 0 {
					violation = true
				}
				if c.Data&(CPLB_WT|CPLB_L1_CHBL|CPLB_DIRTY) == CPLB_L1_CHBL {
					violation = true
				}
			} else if !a.Supv && c.Data&CPLB_USER_RD == 0 {
				violation = true
			}
		}
	}

	if !violation && hits < 2 {
		switch ihits := implicit(a.Addr, a.Inst, a.Size, a.Supv, a.DAG1); ihits {
		case implicitValid:
			return Fault{}
		case implicitUnknown:
			if hits == 1 {
				return Fault{}
			}
		case hitHwErr:
			return Fault{Kind: HwErrMiss, Inst: a.Inst, Addr: a.Addr}
		default:
			hits = ihits
		}
	} else if hits > 2 {
		hits = 2
	}
	m.logFault(a, hits == hitMiss, faults)
	return m.fault(a, hits)
}

// CheckCacheAddr validates a cache line operation. Misses and instruction
// side violations are expected there and are not reported.
func (m *MMU) CheckCacheAddr(a Access) Fault {
	a.Addr &^= L1CacheBytes - 1
	a.Size = L1CacheBytes
	f := m.CheckAddress(a)
	switch {
	case f.Kind == Miss:
		return Fault{}
	case f.Kind == Violation && a.Inst:
		return Fault{}
	}
	return f
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
