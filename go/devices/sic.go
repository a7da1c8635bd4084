package devices

import "github.com/sirupsen/logrus"

// register offsets of a single-bank system interrupt controller
const (
	SIC_SWRST = 0x00
	SIC_SYSCR = 0x04
	SIC_RVECT = 0x08
	SIC_IMASK = 0x0c
	SIC_IAR0  = 0x10
	SIC_ISR   = 0x20
	SIC_IWR   = 0x24

	SICBase = 0xffc00100
	IVG7    = 7
)

// SIC routes up to 32 peripheral interrupt lines onto core levels IVG7-IVG15.
// Each IAR nibble holds the level for one line, relative to IVG7.
type SIC struct {
	irq Interrupter
	log *logrus.Entry

	swrst, syscr, rvect uint16
	imask, isr, iwr     uint32
	iar                 [4]uint32
	raised              uint32
}

func NewSIC(irq Interrupter, log *logrus.Entry) *SIC {
	s := &SIC{irq: irq, log: log}
	s.Reset()
	return s
}

func (s *SIC) Name() string { return "sic" }
func (s *SIC) Base() uint32 { return SICBase }
func (s *SIC) Size() uint32 { return 0x28 }

// Level returns the core level line n is routed to.
func (s *SIC) Level(n int) int {
	nibble := (s.iar[n/8] >> (uint(n%8) * 4)) & 0xf
	return IVG7 + int(nibble)
}

// SetLine is called by a peripheral when its interrupt output changes.
func (s *SIC) SetLine(n int, asserted bool) {
	bit := uint32(1) << uint(n)
	if asserted {
		s.isr |= bit
	} else {
		s.isr &^= bit
	}
	s.forward()
}

func (s *SIC) forward() {
	pending := s.isr & s.imask
	levels := make(map[int]bool)
	for n := 0; n < 32; n++ {
		if pending&(1<<uint(n)) != 0 {
			levels[s.Level(n)] = true
		}
	}
	// lower levels that lost their last source, raise new ones
	for n := 0; n < 32; n++ {
		bit := uint32(1) << uint(n)
		if s.raised&bit != 0 && pending&bit == 0 {
			if lvl := s.Level(n); !levels[lvl] {
				s.irq.LowerLevel(lvl)
			}
		}
	}
	for n := 0; n < 32; n++ {
		bit := uint32(1) << uint(n)
		if pending&bit != 0 && s.raised&bit == 0 {
			if s.log != nil {
				s.log.WithField("ivg", s.Level(n)).Debugf("forwarding line %d", n)
			}
			s.irq.RaiseLevel(s.Level(n))
		}
	}
	s.raised = pending
}

func (s *SIC) ReadRegister(offset uint32, width int) (uint32, error) {
	switch offset {
	case SIC_SWRST, SIC_SYSCR, SIC_RVECT:
		if err := Require16(s, offset, width, false); err != nil {
			return 0, err
		}
		switch offset {
		case SIC_SWRST:
			return uint32(s.swrst), nil
		case SIC_SYSCR:
			return uint32(s.syscr), nil
		default:
			return uint32(s.rvect), nil
		}
	}
	if err := Require32(s, offset, width, false); err != nil {
		return 0, err
	}
	switch {
	case offset == SIC_IMASK:
		return s.imask, nil
	case offset >= SIC_IAR0 && offset < SIC_ISR:
		return s.iar[(offset-SIC_IAR0)/4], nil
	case offset == SIC_ISR:
		return s.isr, nil
	case offset == SIC_IWR:
		return s.iwr, nil
	}
	return 0, Missing(s, offset, width, false)
}

func (s *SIC) WriteRegister(offset uint32, width int, value uint32) error {
	switch offset {
	case SIC_SWRST, SIC_SYSCR, SIC_RVECT:
		if err := Require16(s, offset, width, true); err != nil {
			return err
		}
		switch offset {
		case SIC_SWRST:
			s.swrst = uint16(value)
		case SIC_SYSCR:
			s.syscr = uint16(value)
		}
		// RVECT is read-only
		return nil
	}
	if err := Require32(s, offset, width, true); err != nil {
		return err
	}
	switch {
	case offset == SIC_IMASK:
		s.imask = value
	case offset >= SIC_IAR0 && offset < SIC_ISR:
		s.iar[(offset-SIC_IAR0)/4] = value
	case offset == SIC_ISR:
		// read-only
		return nil
	case offset == SIC_IWR:
		s.iwr = value
		return nil
	default:
		return Missing(s, offset, width, true)
	}
	s.forward()
	return nil
}

func (s *SIC) Reset() {
	s.swrst, s.syscr, s.rvect = 0, 0, 0
	s.imask, s.isr, s.raised = 0, 0, 0
	s.iwr = 0xffffffff
	s.iar = [4]uint32{}
}
