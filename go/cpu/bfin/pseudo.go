package bfin

import (
	"fmt"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/models"
)

// Simulator-only debug instructions used by the test harness.

func (m *Machine) outc(ch byte) {
	if _, err := m.cfg.Output.Write([]byte{ch}); err != nil {
		m.log.WithError(err).Warn("OUTC write failed")
	}
}

func (m *Machine) unhandled(pc uint32, what string) error {
	return models.Stopped(pc, models.SIGILL, "unhandled instruction: "+what)
}

func (m *Machine) execPseudoDEBUG(iw0, _ uint16, pc uint32) error {
	fn := int(iw0>>6) & 3
	grp := int(iw0>>3) & 7
	reg := int(iw0 & 7)

	if fn == 3 {
		switch reg {
		case 0, 1:
			fmt.Fprintf(m.cfg.Output, "DBG : A%d = %#x\n", reg, m.Regs.UnextendedAcc(reg))
			return nil
		case 3:
			return &cec.Except{Cause: cec.VEC_SIM_ABORT}
		case 4:
			return &cec.Except{Cause: cec.VEC_SIM_HLT}
		case 5:
			return m.unhandled(pc, "DBGHALT")
		case 6:
			return m.unhandled(pc, "DBGCMPLX (dregs)")
		case 7:
			return m.unhandled(pc, "DBG")
		}
	}
	switch {
	case grp == 0 && fn == 2:
		m.outc(byte(m.Regs.D(reg)))
	case fn == 0:
		val, err := m.regRead(grp, reg)
		if err != nil {
			return err
		}
		fmt.Fprintf(m.cfg.Output, "DBG : %s = 0x%08x\n", allregName(grp, reg), val)
	case fn == 1:
		return m.unhandled(pc, "PRNT allregs")
	default:
		return errIllegal()
	}
	return nil
}

func (m *Machine) execPseudoOChar(iw0, _ uint16, _ uint32) error {
	m.outc(byte(iw0))
	return nil
}

var astatNames = [32]string{
	"AZ", "AN", "AC0_COPY", "V_COPY", "ASTAT_4", "CC", "AQ", "ASTAT_7",
	"RND_MOD", "ASTAT_9", "ASTAT_10", "ASTAT_11", "AC0", "AC1", "ASTAT_14", "ASTAT_15",
	"AV0", "AV0S", "AV1", "AV1S", "ASTAT_20", "ASTAT_21", "ASTAT_22", "ASTAT_23",
	"V", "VS", "ASTAT_26", "ASTAT_27", "ASTAT_28", "ASTAT_29", "ASTAT_30", "ASTAT_31",
}

// execPseudoDbgAssert compares one half of a register against an
// immediate and fails the run on a mismatch.
func (m *Machine) execPseudoDbgAssert(iw0, iw1 uint16, pc uint32) error {
	expected := iw1
	dbgop := int(iw0>>6) & 7
	grp := int(iw0>>3) & 7
	regtest := int(iw0 & 7)

	var name, suffix string
	var offset uint
	switch dbgop {
	case 0:
		name, suffix = "DBGA", ".L"
	case 2:
		name = "DBGAL"
	case 1:
		name, suffix, offset = "DBGA", ".H", 16
	case 3:
		name, offset = "DBGAH", 16
	default:
		return errIllegal()
	}
	val, err := m.regRead(grp, regtest)
	if err != nil {
		return err
	}
	actual := uint16(val >> offset)
	if actual == expected {
		return nil
	}

	regName := allregName(grp, regtest)
	fmt.Fprintf(m.cfg.Output, "FAIL at %#x: %s (%s%s, 0x%04x); actual value %#x\n",
		pc, name, regName, suffix, expected, actual)
	if grp == 4 && regtest == 6 {
		dump := func(title string, v uint16) {
			fmt.Fprintf(m.cfg.Output, "%s ASTAT:\n", title)
			for i := uint(0); i < 16; i++ {
				mark := ' '
				if (expected>>i)&1 != (actual>>i)&1 {
					mark = '!'
				}
				fmt.Fprintf(m.cfg.Output, " %8s%c%d", astatNames[i+offset], mark, (v>>i)&1)
				if i == 7 {
					fmt.Fprintln(m.cfg.Output)
				}
			}
			fmt.Fprintln(m.cfg.Output)
		}
		dump("Expected", expected)
		dump("Actual", actual)
	}
	m.log.WithField("pc", fmt.Sprintf("0x%08x", pc)).Errorf("%s (%s%s) failed", name, regName, suffix)
	return &cec.Except{Cause: cec.VEC_SIM_DBGA}
}
