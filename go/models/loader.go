package models

import (
	"encoding/binary"
)

// Loader describes a program image: where its segments go and where it starts.
type Loader interface {
	Arch() string
	ByteOrder() binary.ByteOrder
	Entry() uint32
	Symbols() ([]Symbol, error)
	Segments() ([]SegmentData, error)
}

// MemWriter is what a loaded image is copied into.
type MemWriter interface {
	MemWrite(addr uint32, p []byte) error
}
