package loader

import (
	"encoding/binary"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
)

// RawLoader places a flat binary at a fixed address. Execution starts at
// the first byte.
type RawLoader struct {
	LoaderHeader
	data []byte
}

func NewRawLoader(data []byte, addr uint32) *RawLoader {
	return &RawLoader{
		LoaderHeader: LoaderHeader{
			arch:      "bfin",
			byteOrder: binary.LittleEndian,
			entry:     addr,
		},
		data: data,
	}
}

func (r *RawLoader) Segments() ([]models.SegmentData, error) {
	return []models.SegmentData{{
		Addr:     r.entry,
		Size:     uint32(len(r.data)),
		DataFunc: func() ([]byte, error) { return r.data, nil },
	}}, nil
}

// ParseRawSpec splits a file@addr argument. The address accepts any
// strconv base prefix.
func ParseRawSpec(spec string) (string, uint32, error) {
	i := strings.LastIndex(spec, "@")
	if i <= 0 || i == len(spec)-1 {
		return "", 0, errors.Errorf("invalid load spec %q: want file@addr", spec)
	}
	addr, err := strconv.ParseUint(spec[i+1:], 0, 32)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid load address in %q", spec)
	}
	return spec[:i], uint32(addr), nil
}

// LoadRaw reads the file named by a file@addr spec.
func LoadRaw(spec string) (*RawLoader, error) {
	path, addr, err := ParseRawSpec(spec)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return NewRawLoader(data, addr), nil
}
