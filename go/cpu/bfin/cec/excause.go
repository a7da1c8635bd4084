package cec

import "fmt"

// EXCAUSE values stored in SEQSTAT[5:0] when the exception level is raised.
const (
	VEC_SYS         = 0x00
	VEC_EXCPT01     = 0x01
	VEC_EXCPT02     = 0x02
	VEC_EXCPT03     = 0x03
	VEC_EXCPT04     = 0x04
	VEC_EXCPT15     = 0x0f
	VEC_STEP        = 0x10
	VEC_OVFLOW      = 0x11
	VEC_UNDEF_I     = 0x21
	VEC_ILGAL_I     = 0x22
	VEC_CPLB_VL     = 0x23
	VEC_MISALI_D    = 0x24
	VEC_UNCOV       = 0x25
	VEC_CPLB_M      = 0x26
	VEC_CPLB_MHIT   = 0x27
	VEC_WATCH       = 0x28
	VEC_ISTRU_VL    = 0x29
	VEC_MISALI_I    = 0x2a
	VEC_CPLB_I_VL   = 0x2b
	VEC_CPLB_I_M    = 0x2c
	VEC_CPLB_I_MHIT = 0x2d
	VEC_ILL_RES     = 0x2e
)

// Simulator-only exceptions. These never reach SEQSTAT.
const (
	VEC_SIM_HLT = 0x40 + iota
	VEC_SIM_ABORT
	VEC_SIM_TRAP
	VEC_SIM_DBGA
)

// HWERRCAUSE values stored in SEQSTAT[18:14].
const (
	HWERR_SYSTEM_MMR  = 0x02
	HWERR_EXTERN_ADDR = 0x03
	HWERR_PERF_FLOW   = 0x12
	HWERR_RAISE_5     = 0x18
)

const (
	SEQSTAT_EXCAUSE          = 0x0000003f
	SEQSTAT_HWERRCAUSE       = 0x0007c000
	SEQSTAT_HWERRCAUSE_SHIFT = 14
)

var excauseNames = map[int]string{
	VEC_STEP:        "single step",
	VEC_OVFLOW:      "trace buffer overflow",
	VEC_UNDEF_I:     "undefined instruction",
	VEC_ILGAL_I:     "illegal instruction combination",
	VEC_CPLB_VL:     "data access CPLB protection violation",
	VEC_MISALI_D:    "data access misaligned",
	VEC_UNCOV:       "unrecoverable event",
	VEC_CPLB_M:      "data access CPLB miss",
	VEC_CPLB_MHIT:   "data access multiple CPLB hits",
	VEC_WATCH:       "watchpoint match",
	VEC_ISTRU_VL:    "undefined (supervisor-only) instruction",
	VEC_MISALI_I:    "instruction fetch misaligned",
	VEC_CPLB_I_VL:   "instruction fetch CPLB protection violation",
	VEC_CPLB_I_M:    "instruction fetch CPLB miss",
	VEC_CPLB_I_MHIT: "instruction fetch multiple CPLB hits",
	VEC_ILL_RES:     "illegal use of supervisor resource",
	VEC_SIM_HLT:     "halt",
	VEC_SIM_ABORT:   "abort",
	VEC_SIM_TRAP:    "emulation trap",
	VEC_SIM_DBGA:    "assertion failed",
}

// ExcauseName describes an EXCAUSE value for logs and the debug console.
func ExcauseName(excause int) string {
	if name, ok := excauseNames[excause]; ok {
		return name
	}
	if excause < 0x10 {
		return fmt.Sprintf("EXCPT %d", excause)
	}
	return fmt.Sprintf("reserved %#x", excause)
}
