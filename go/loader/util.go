package loader

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
)

// format is an image type recognized by its leading bytes. A nil open means
// the type is known but cannot be loaded.
type format struct {
	name  string
	magic []byte
	open  func(r io.ReaderAt) (models.Loader, error)
}

var formats = []format{
	{"ELF", elfMagic, openElf},
	// uClinux flat binaries need the kernel's relocation pass
	{"bFLT", []byte("bFLT"), nil},
}

func openElf(r io.ReaderAt) (models.Loader, error) {
	l, err := NewElfLoader(r)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func hasMagic(r io.ReaderAt, magic []byte) bool {
	head := make([]byte, len(magic))
	n, _ := r.ReadAt(head, 0)
	return n == len(magic) && bytes.Equal(head, magic)
}

func identify(r io.ReaderAt) (*format, error) {
	for i := range formats {
		if hasMagic(r, formats[i].magic) {
			return &formats[i], nil
		}
	}
	return nil, errors.WithStack(UnknownMagic)
}

func openImage(r io.ReaderAt) (models.Loader, error) {
	f, err := identify(r)
	if err != nil {
		return nil, err
	}
	if f.open == nil {
		return nil, errors.Errorf("%s images are not supported", f.name)
	}
	return f.open(r)
}
