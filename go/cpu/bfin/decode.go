package bfin

type execFn func(m *Machine, iw0, iw1 uint16, pc uint32) error

// opClass is one row of the decode table. 32-bit rows may also constrain
// the second halfword.
type opClass struct {
	name          string
	mask, match   uint16
	mask1, match1 uint16
	// parallel classes may fill slots 1 and 2 of a multi-issue group, dsp
	// classes may lead one
	parallel, dsp bool
	exec          execFn
}

func (c *opClass) matches(iw0, iw1 uint16) bool {
	return iw0&c.mask == c.match && iw1&c.mask1 == c.match1
}

// Scanned in order, so more specific patterns come first.
var opClasses16 = []opClass{
	{name: "ProgCtrl", mask: 0xff00, match: 0x0000, parallel: true, exec: (*Machine).execProgCtrl},
	{name: "CaCTRL", mask: 0xffc0, match: 0x0240, exec: (*Machine).execCaCTRL},
	{name: "PushPopReg", mask: 0xff80, match: 0x0100, exec: (*Machine).execPushPopReg},
	{name: "PushPopMultiple", mask: 0xfe00, match: 0x0400, exec: (*Machine).execPushPopMultiple},
	{name: "ccMV", mask: 0xfe00, match: 0x0600, exec: (*Machine).execCCMV},
	{name: "CCflag", mask: 0xf800, match: 0x0800, exec: (*Machine).execCCflag},
	{name: "CC2dreg", mask: 0xffe0, match: 0x0200, exec: (*Machine).execCC2dreg},
	{name: "CC2stat", mask: 0xff00, match: 0x0300, exec: (*Machine).execCC2stat},
	{name: "BRCC", mask: 0xf000, match: 0x1000, exec: (*Machine).execBRCC},
	{name: "UJUMP", mask: 0xf000, match: 0x2000, exec: (*Machine).execUJUMP},
	{name: "REGMV", mask: 0xf000, match: 0x3000, exec: (*Machine).execREGMV},
	{name: "ALU2op", mask: 0xfc00, match: 0x4000, exec: (*Machine).execALU2op},
	{name: "PTR2op", mask: 0xfe00, match: 0x4400, exec: (*Machine).execPTR2op},
	{name: "LOGI2op", mask: 0xf800, match: 0x4800, exec: (*Machine).execLOGI2op},
	{name: "COMP3op", mask: 0xf000, match: 0x5000, exec: (*Machine).execCOMP3op},
	{name: "COMPI2opD", mask: 0xf800, match: 0x6000, exec: (*Machine).execCOMPI2opD},
	{name: "COMPI2opP", mask: 0xf800, match: 0x6800, exec: (*Machine).execCOMPI2opP},
	{name: "LDSTpmod", mask: 0xf000, match: 0x8000, parallel: true, exec: (*Machine).execLDSTpmod},
	{name: "dagMODim", mask: 0xff60, match: 0x9e60, parallel: true, exec: (*Machine).execDagMODim},
	{name: "dagMODik", mask: 0xfff0, match: 0x9f60, parallel: true, exec: (*Machine).execDagMODik},
	{name: "dspLDST", mask: 0xfc00, match: 0x9c00, parallel: true, exec: (*Machine).execDspLDST},
	{name: "LDST", mask: 0xf000, match: 0x9000, parallel: true, exec: (*Machine).execLDST},
	{name: "LDSTiiFP", mask: 0xfc00, match: 0xb800, parallel: true, exec: (*Machine).execLDSTiiFP},
	{name: "LDSTii", mask: 0xe000, match: 0xa000, parallel: true, exec: (*Machine).execLDSTii},
}

var opClasses32 = []opClass{
	{name: "MNOP", mask: 0xf7ff, match: 0xc003, mask1: 0xfe00, match1: 0x1800, dsp: true, exec: execMNOP},
	{name: "LoopSetup", mask: 0xff80, match: 0xe080, mask1: 0x0c00, match1: 0x0000, exec: (*Machine).execLoopSetup},
	{name: "LDIMMhalf", mask: 0xff00, match: 0xe100, exec: (*Machine).execLDIMMhalf},
	{name: "CALLa", mask: 0xfe00, match: 0xe200, exec: (*Machine).execCALLa},
	{name: "LDSTidxI", mask: 0xfc00, match: 0xe400, exec: (*Machine).execLDSTidxI},
	{name: "linkage", mask: 0xfffe, match: 0xe800, exec: (*Machine).execLinkage},
	{name: "dsp32mac", mask: 0xf600, match: 0xc000, dsp: true, exec: (*Machine).execDsp32mac},
	{name: "dsp32mult", mask: 0xf600, match: 0xc200, dsp: true, exec: (*Machine).execDsp32mult},
	{name: "dsp32alu", mask: 0xf7c0, match: 0xc400, dsp: true, exec: (*Machine).execDsp32alu},
	{name: "dsp32shift", mask: 0xf7e0, match: 0xc600, mask1: 0x01c0, match1: 0x0000, dsp: true, exec: (*Machine).execDsp32shift},
	{name: "dsp32shiftimm", mask: 0xf7e0, match: 0xc680, dsp: true, exec: (*Machine).execDsp32shiftimm},
	{name: "pseudoDEBUG", mask: 0xff00, match: 0xf800, exec: (*Machine).execPseudoDEBUG},
	{name: "pseudoOChar", mask: 0xff00, match: 0xf900, exec: (*Machine).execPseudoOChar},
	{name: "pseudoDbgAssert", mask: 0xf000, match: 0xf000, exec: (*Machine).execPseudoDbgAssert},
}

func execMNOP(m *Machine, iw0, iw1 uint16, pc uint32) error { return nil }

// InsnLen returns the size in bytes of the instruction starting with iw0.
func InsnLen(iw0 uint16) int {
	switch {
	case iw0&0xc000 != 0xc000:
		return 2
	case iw0&0xff00 == 0xf800, iw0&0xff00 == 0xf900:
		return 2
	case iw0&0x0800 != 0 && iw0&0xe800 != 0xe800:
		return 8
	}
	return 4
}

// Lookup finds the decode table row for an instruction and returns it
// with the instruction length. The row is nil for undefined encodings.
func Lookup(iw0, iw1 uint16) (*opClass, int) {
	n := InsnLen(iw0)
	if iw0&0xc000 != 0xc000 {
		return lookup(opClasses16, iw0, 0), n
	}
	return lookup(opClasses32, iw0, iw1), n
}

func lookup(table []opClass, iw0, iw1 uint16) *opClass {
	for i := range table {
		if table[i].matches(iw0, iw1) {
			return &table[i]
		}
	}
	return nil
}

// exec runs the instruction or parallel group at pc and returns its length.
func (m *Machine) exec(pc uint32) (uint32, error) {
	n, err := m.execSlot(pc)
	if err != nil || n != 8 {
		return n, err
	}
	m.group = group1
	if _, err := m.execSlot(pc + 4); err != nil {
		return n, err
	}
	m.group = group2
	if _, err := m.execSlot(pc + 6); err != nil {
		return n, err
	}
	return n, nil
}

func (m *Machine) execSlot(pc uint32) (uint32, error) {
	m.multiPC = pc
	iw0, err := m.ifetch(pc)
	if err != nil {
		return 0, err
	}
	if iw0&0xc000 != 0xc000 {
		if m.insnLen == 0 {
			m.insnLen = 2
		}
		c := lookup(opClasses16, iw0, 0)
		if c == nil {
			return 2, m.errIllegalOrCombination()
		}
		if m.group != groupNone && !c.parallel {
			return 2, errCombination()
		}
		return 2, c.exec(m, iw0, 0, pc)
	}
	// DBG and OUTC share the 32-bit opcode space but are one halfword
	if iw0&0xfe00 == 0xf800 {
		if m.insnLen != 0 {
			return 2, errCombination()
		}
		m.insnLen = 2
		c := lookup(opClasses32, iw0, 0)
		if c == nil {
			return 2, errIllegal()
		}
		return 2, c.exec(m, iw0, 0, pc)
	}

	iw1, err := m.ifetch(pc + 2)
	if err != nil {
		return 0, err
	}
	n := uint32(4)
	if iw0&0x0800 != 0 && iw0&0xe800 != 0xe800 {
		n = 8
		m.group = group0
	}
	// past the first slot only 16-bit instructions are valid
	if m.insnLen != 0 {
		return n, errCombination()
	}
	m.insnLen = n

	c := lookup(opClasses32, iw0, iw1)
	if c == nil {
		return n, errIllegal()
	}
	if m.group == group0 && !c.dsp {
		return n, errCombination()
	}
	return n, c.exec(m, iw0, iw1, pc)
}
