package loader

import (
	"debug/elf"
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
)

// EM_BLACKFIN
const machineBlackfin = elf.Machine(106)

type ElfLoader struct {
	LoaderHeader
	file *elf.File
}

var elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}

func NewElfLoader(r io.ReaderAt) (*ElfLoader, error) {
	file, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing ELF")
	}
	if file.Class != elf.ELFCLASS32 {
		return nil, errors.Errorf("unsupported ELF class: %s", file.Class)
	}
	if file.Data != elf.ELFDATA2LSB {
		return nil, errors.Errorf("unsupported ELF byte order: %s", file.Data)
	}
	if file.Machine != machineBlackfin {
		return nil, errors.Errorf("unsupported machine: %s", file.Machine)
	}
	e := &ElfLoader{file: file}
	e.LoaderHeader = LoaderHeader{
		arch:      "bfin",
		byteOrder: file.ByteOrder,
		entry:     uint32(file.Entry),
		getSyms:   e.getSymbols,
	}
	return e, nil
}

func (e *ElfLoader) getSymbols() ([]models.Symbol, error) {
	syms, err := e.file.Symbols()
	if err == elf.ErrNoSymbols {
		return []models.Symbol{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "reading ELF symbols")
	}
	ret := make([]models.Symbol, 0, len(syms))
	for _, s := range syms {
		switch elf.ST_TYPE(s.Info) {
		case elf.STT_FUNC, elf.STT_OBJECT, elf.STT_NOTYPE:
		default:
			continue
		}
		if s.Section == elf.SHN_UNDEF || s.Name == "" {
			continue
		}
		ret = append(ret, models.Symbol{
			Name:  s.Name,
			Start: uint32(s.Value),
			End:   uint32(s.Value + s.Size),
		})
	}
	return ret, nil
}

// Segments returns the PT_LOAD segments at their physical addresses.
func (e *ElfLoader) Segments() ([]models.SegmentData, error) {
	ret := make([]models.SegmentData, 0, len(e.file.Progs))
	for _, prog := range e.file.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		if prog.Filesz > prog.Memsz {
			return nil, errors.Errorf("segment at %#x: file size %#x exceeds memory size %#x", prog.Vaddr, prog.Filesz, prog.Memsz)
		}
		prog := prog
		ret = append(ret, models.SegmentData{
			Off:  uint32(prog.Off),
			Addr: uint32(prog.Paddr),
			Size: uint32(prog.Memsz),
			DataFunc: func() ([]byte, error) {
				data := make([]byte, prog.Memsz)
				if _, err := io.ReadFull(prog.Open(), data[:prog.Filesz]); err != nil {
					return nil, errors.Wrap(err, "reading segment")
				}
				return data, nil
			},
		})
	}
	return ret, nil
}
