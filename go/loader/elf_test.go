package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// buildElf returns a minimal executable with one PT_LOAD segment and no
// section headers.
func buildElf(machine elf.Machine, entry, addr uint32, data []byte, memsz uint32) []byte {
	var buf bytes.Buffer
	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     52,
		Ehsize:    52,
		Phentsize: 32,
		Phnum:     1,
		Shentsize: 40,
	}
	copy(hdr.Ident[:], elfMagic)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	prog := elf.Prog32{
		Type:   uint32(elf.PT_LOAD),
		Off:    52 + 32,
		Vaddr:  addr,
		Paddr:  addr,
		Filesz: uint32(len(data)),
		Memsz:  memsz,
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Align:  4,
	}
	binary.Write(&buf, binary.LittleEndian, &hdr)
	binary.Write(&buf, binary.LittleEndian, &prog)
	buf.Write(data)
	return buf.Bytes()
}

func TestElfLoad(t *testing.T) {
	code := []byte{0x28, 0x60, 0xc4, 0xf8}
	l, err := Load(bytes.NewReader(buildElf(machineBlackfin, 0x1000, 0x1000, code, 8)))
	if err != nil {
		t.Fatal(err)
	}
	if l.Arch() != "bfin" || l.Entry() != 0x1000 {
		t.Fatalf("arch %s entry %#x", l.Arch(), l.Entry())
	}
	segs, err := l.Segments()
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 1 || segs[0].Addr != 0x1000 || segs[0].Size != 8 {
		t.Fatalf("segments: %+v", segs)
	}
	data, err := segs[0].Data()
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte{}, code...), 0, 0, 0, 0)
	if !bytes.Equal(data, want) {
		t.Fatalf("segment data %x", data)
	}
}

func TestElfNoSymbols(t *testing.T) {
	l, err := NewElfLoader(bytes.NewReader(buildElf(machineBlackfin, 0, 0, []byte{0, 0}, 2)))
	if err != nil {
		t.Fatal(err)
	}
	syms, err := l.Symbols()
	if err != nil || len(syms) != 0 {
		t.Fatalf("got %v %v", syms, err)
	}
}

func TestElfWrongMachine(t *testing.T) {
	if _, err := Load(bytes.NewReader(buildElf(elf.EM_ARM, 0, 0, []byte{0, 0}, 2))); err == nil {
		t.Fatal("loaded an ARM binary")
	}
}

func TestLoadUnknownMagic(t *testing.T) {
	if _, err := Load(bytes.NewReader([]byte("not an elf"))); err == nil {
		t.Fatal("Failed to error on loading bad file.")
	}
}

func TestLoadShortFile(t *testing.T) {
	if _, err := Load(bytes.NewReader([]byte{0x7f, 'E'})); errors.Cause(err) != UnknownMagic {
		t.Fatalf("got %v", err)
	}
}

func TestLoadFlatRejected(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("bFLT\x00\x00\x00\x04")))
	if err == nil || !strings.Contains(err.Error(), "bFLT") {
		t.Fatalf("got %v", err)
	}
}
