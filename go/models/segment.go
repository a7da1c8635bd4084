package models

type SegmentData struct {
	Off        uint32
	Addr, Size uint32
	DataFunc   func() ([]byte, error)
}

func (s *SegmentData) Data() ([]byte, error) {
	return s.DataFunc()
}

func (s *SegmentData) ContainsVirt(addr uint32) bool {
	return s.Addr <= addr && addr-s.Addr < s.Size
}
