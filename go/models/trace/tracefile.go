package trace

import (
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

var TRACE_MAGIC = "BFTR"

const TRACE_VERSION = 1

type TraceHeader struct {
	Magic   string `struc:"[4]byte"`
	Version uint32
	// Emulated architecture, right-null-padded.
	Arch string `struc:"[32]byte"`
	// Entry point of the traced program.
	Entry uint32
}

const (
	REC_INS   = 1
	REC_EVENT = 2
	REC_READ  = 3
	REC_WRITE = 4
	REC_HALT  = 5
)

// Record is one fixed-size trace entry.
//
//	REC_INS:   PC, Len and up to four instruction halfwords in Words
//	REC_EVENT: PC, A = level, B = cause
//	REC_READ/REC_WRITE: PC, A = address, B = value, Len = size
//	REC_HALT:  PC, A = reason, B = status or signal
type Record struct {
	Kind  uint8
	Len   uint8
	PC    uint32
	A     uint32
	B     uint32
	Words [4]uint16
}

type TraceWriter struct {
	w  io.WriteCloser
	zw *snappy.Writer
}

func NewWriter(w io.WriteCloser, arch string, entry uint32) (*TraceWriter, error) {
	header := &TraceHeader{
		Magic:   TRACE_MAGIC,
		Version: TRACE_VERSION,
		Arch:    arch,
		Entry:   entry,
	}
	if err := struc.Pack(w, header); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	zw := snappy.NewBufferedWriter(w)
	return &TraceWriter{w: w, zw: zw}, nil
}

func (t *TraceWriter) Pack(rec *Record) error {
	return struc.Pack(t.zw, rec)
}

func (t *TraceWriter) Close() error {
	if err := t.zw.Close(); err != nil {
		t.w.Close()
		return err
	}
	return t.w.Close()
}

type TraceReader struct {
	r      io.ReadCloser
	zr     *snappy.Reader
	Header TraceHeader
}

func NewReader(r io.ReadCloser) (*TraceReader, error) {
	t := &TraceReader{r: r}
	if err := struc.Unpack(r, &t.Header); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if t.Header.Magic != TRACE_MAGIC {
		return nil, errors.New("invalid trace file magic")
	}
	if t.Header.Version != TRACE_VERSION {
		return nil, errors.Errorf("unsupported trace version %d", t.Header.Version)
	}
	t.Header.Arch = strings.TrimRight(t.Header.Arch, "\x00")
	t.zr = snappy.NewReader(r)
	return t, nil
}

// Next returns io.EOF after the last record.
func (t *TraceReader) Next() (*Record, error) {
	rec := &Record{}
	if err := struc.Unpack(t.zr, rec); err != nil {
		if cause := errors.Cause(err); cause == io.EOF || cause == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return rec, nil
}

func (t *TraceReader) Close() error {
	return t.r.Close()
}
