package bfin

import "fmt"

// Register indices. The order up to PC matches the remote debugger's register file.
const (
	REG_R0 = iota
	REG_R1
	REG_R2
	REG_R3
	REG_R4
	REG_R5
	REG_R6
	REG_R7
	REG_P0
	REG_P1
	REG_P2
	REG_P3
	REG_P4
	REG_P5
	REG_SP
	REG_FP
	REG_I0
	REG_I1
	REG_I2
	REG_I3
	REG_M0
	REG_M1
	REG_M2
	REG_M3
	REG_B0
	REG_B1
	REG_B2
	REG_B3
	REG_L0
	REG_L1
	REG_L2
	REG_L3
	REG_A0X
	REG_A0W
	REG_A1X
	REG_A1W
	REG_ASTAT
	REG_RETS
	REG_LC0
	REG_LT0
	REG_LB0
	REG_LC1
	REG_LT1
	REG_LB1
	REG_CYCLES
	REG_CYCLES2
	REG_USP
	REG_SEQSTAT
	REG_SYSCFG
	REG_RETI
	REG_RETX
	REG_RETN
	REG_RETE
	REG_PC

	// not visible through the register groups
	REG_KSP
	REG_CYCLES2SHD
	REG_EMUDAT
	REG_EMUDAT_OUT

	NumRegs
)

var regNames = [NumRegs]string{
	"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7",
	"P0", "P1", "P2", "P3", "P4", "P5", "SP", "FP",
	"I0", "I1", "I2", "I3", "M0", "M1", "M2", "M3",
	"B0", "B1", "B2", "B3", "L0", "L1", "L2", "L3",
	"A0.X", "A0.W", "A1.X", "A1.W", "ASTAT", "RETS",
	"LC0", "LT0", "LB0", "LC1", "LT1", "LB1", "CYCLES", "CYCLES2",
	"USP", "SEQSTAT", "SYSCFG", "RETI", "RETX", "RETN", "RETE", "PC",
	"KSP", "CYCLES2SHD", "EMUDAT", "EMUDAT_OUT",
}

// allregs maps the grp<<3|reg encoding used by instructions to a register index.
var allregs = [64]int{
	REG_R0, REG_R1, REG_R2, REG_R3, REG_R4, REG_R5, REG_R6, REG_R7,
	REG_P0, REG_P1, REG_P2, REG_P3, REG_P4, REG_P5, REG_SP, REG_FP,
	REG_I0, REG_I1, REG_I2, REG_I3, REG_M0, REG_M1, REG_M2, REG_M3,
	REG_B0, REG_B1, REG_B2, REG_B3, REG_L0, REG_L1, REG_L2, REG_L3,
	REG_A0X, REG_A0W, REG_A1X, REG_A1W, -1, -1, REG_ASTAT, REG_RETS,
	-1, -1, -1, -1, -1, -1, -1, -1,
	REG_LC0, REG_LT0, REG_LB0, REG_LC1, REG_LT1, REG_LB1, REG_CYCLES, REG_CYCLES2,
	REG_USP, REG_SEQSTAT, REG_SYSCFG, REG_RETI, REG_RETX, REG_RETN, REG_RETE, REG_EMUDAT,
}

func regName(idx int) string {
	if idx >= 0 && idx < NumRegs {
		return regNames[idx]
	}
	return fmt.Sprintf("<reg %d>", idx)
}

func allregName(grp, reg int) string {
	if idx := allregs[grp<<3|reg]; idx >= 0 {
		return regNames[idx]
	}
	return "<res>"
}

func regIsReserved(grp, reg int) bool {
	return (grp == 4 && (reg == 4 || reg == 5)) || grp == 5
}

// ASTAT bits
const (
	ASTAT_AZ       = 0
	ASTAT_AN       = 1
	ASTAT_AC0_COPY = 2
	ASTAT_V_COPY   = 3
	ASTAT_CC       = 5
	ASTAT_AQ       = 6
	ASTAT_RND_MOD  = 8
	ASTAT_AC0      = 12
	ASTAT_AC1      = 13
	ASTAT_AV0      = 16
	ASTAT_AV0S     = 17
	ASTAT_AV1      = 18
	ASTAT_AV1S     = 19
	ASTAT_V        = 24
	ASTAT_VS       = 25

	astatMask = 1<<ASTAT_AZ | 1<<ASTAT_AN | 1<<ASTAT_AC0_COPY | 1<<ASTAT_V_COPY |
		1<<ASTAT_CC | 1<<ASTAT_AQ | 1<<ASTAT_RND_MOD | 1<<ASTAT_AC0 | 1<<ASTAT_AC1 |
		1<<ASTAT_AV0 | 1<<ASTAT_AV0S | 1<<ASTAT_AV1 | 1<<ASTAT_AV1S | 1<<ASTAT_V | 1<<ASTAT_VS
)

var (
	astatAV  = [2]int{ASTAT_AV0, ASTAT_AV1}
	astatAVS = [2]int{ASTAT_AV0S, ASTAT_AV1S}
	astatAC  = [2]int{ASTAT_AC0, ASTAT_AC1}
)

// SYSCFG bits
const (
	SYSCFG_SSSTEP = 1 << 0
	SYSCFG_CCEN   = 1 << 1
	SYSCFG_SNEN   = 1 << 2
)

// RegFile is the architectural register state.
type RegFile struct {
	R [NumRegs]uint32
}

func (r *RegFile) D(n int) uint32 { return r.R[REG_R0+n] }
func (r *RegFile) P(n int) uint32 { return r.R[REG_P0+n] }
func (r *RegFile) I(n int) uint32 { return r.R[REG_I0+n] }
func (r *RegFile) M(n int) uint32 { return r.R[REG_M0+n] }
func (r *RegFile) B(n int) uint32 { return r.R[REG_B0+n] }
func (r *RegFile) L(n int) uint32 { return r.R[REG_L0+n] }

func (r *RegFile) LC(n int) uint32 { return r.R[REG_LC0+n*3] }
func (r *RegFile) LT(n int) uint32 { return r.R[REG_LT0+n*3] }
func (r *RegFile) LB(n int) uint32 { return r.R[REG_LB0+n*3] }

func (r *RegFile) AX(n int) uint32 { return r.R[REG_A0X+n*2] }
func (r *RegFile) AW(n int) uint32 { return r.R[REG_A0W+n*2] }

// UnextendedAcc returns the 40-bit accumulator zero extended.
func (r *RegFile) UnextendedAcc(n int) uint64 {
	return uint64(r.AX(n)&0xff)<<32 | uint64(r.AW(n))
}

// ExtendedAcc returns the 40-bit accumulator sign extended from bit 39.
func (r *RegFile) ExtendedAcc(n int) uint64 {
	acc := uint64(r.AX(n))
	if acc&0x80 != 0 {
		acc |= ^uint64(0x7f)
	} else {
		acc &= 0xff
	}
	return acc<<32 | uint64(r.AW(n))
}

func (r *RegFile) ExtendedCycles() uint64 {
	return uint64(r.R[REG_CYCLES2SHD])<<32 | uint64(r.R[REG_CYCLES])
}
