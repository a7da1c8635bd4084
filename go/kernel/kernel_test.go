package kernel

import (
	"bytes"
	"encoding/binary"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// flatMem is 64k of guest memory at address 0.
type flatMem []byte

func (m flatMem) MemRead(addr uint32, size int) ([]byte, error) {
	if int(addr)+size > len(m) {
		return nil, errors.Errorf("read past end at %#x", addr)
	}
	out := make([]byte, size)
	copy(out, m[addr:])
	return out, nil
}

func (m flatMem) MemWrite(addr uint32, p []byte) error {
	if int(addr)+len(p) > len(m) {
		return errors.Errorf("write past end at %#x", addr)
	}
	copy(m[addr:], p)
	return nil
}

func testKernel(stdin string) (*LinuxKernel, flatMem, *bytes.Buffer) {
	mem := make(flatMem, 0x10000)
	var out bytes.Buffer
	return NewLinuxKernel(mem, strings.NewReader(stdin), &out, &out, nil), mem, &out
}

const (
	sysExit  = 1
	sysRead  = 3
	sysWrite = 4
	sysOpen  = 5
	sysClose = 6
	sysLseek = 19
	sysTime  = 13
	sysBrk   = 45
	sysIoctl = 54
	sysMmap2 = 192
)

func call(t *testing.T, k *LinuxKernel, nr int, args ...uint32) uint32 {
	full := make([]uint32, 6)
	copy(full, args)
	ret, ok := k.Syscall(nr, full)
	if !ok {
		t.Fatalf("syscall %d not handled", nr)
	}
	return ret
}

func TestCamelToSnakeCase(t *testing.T) {
	tests := map[string]string{"Exit": "exit", "ExitGroup": "exit_group", "Gettimeofday": "gettimeofday", "Mmap2": "mmap2"}
	for in, want := range tests {
		if got := camelToSnakeCase(in); got != want {
			t.Errorf("%s -> %s, want %s", in, got, want)
		}
	}
}

func TestWriteRead(t *testing.T) {
	k, mem, out := testKernel("input")
	copy(mem[0x100:], "hello")
	if n := call(t, k, sysWrite, 1, 0x100, 5); n != 5 {
		t.Fatalf("write returned %d", int32(n))
	}
	if out.String() != "hello" {
		t.Fatalf("stdout %q", out.String())
	}
	if n := call(t, k, sysRead, 0, 0x200, 16); n != 5 || string(mem[0x200:0x205]) != "input" {
		t.Fatalf("read returned %d: %q", int32(n), mem[0x200:0x205])
	}
	if n := call(t, k, sysRead, 0, 0x200, 16); n != 0 {
		t.Fatalf("read at EOF returned %d", int32(n))
	}
	if r := call(t, k, sysWrite, 7, 0x100, 5); r != errno(EBADF) {
		t.Fatalf("write to a closed fd returned %d", int32(r))
	}
	if r := call(t, k, sysWrite, 1, 0xfff0, 0x100); r != errno(EFAULT) {
		t.Fatalf("write from a bad buffer returned %d", int32(r))
	}
}

func TestFileIO(t *testing.T) {
	dir, err := ioutil.TempDir("", "bfin-kernel")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "data")
	if err := ioutil.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}

	k, mem, _ := testKernel("")
	copy(mem[0x100:], path+"\x00")
	fd := call(t, k, sysOpen, 0x100, 0, 0)
	if fd != 3 {
		t.Fatalf("open returned %d", int32(fd))
	}
	if pos := call(t, k, sysLseek, fd, 4, 0); pos != 4 {
		t.Fatalf("lseek returned %d", int32(pos))
	}
	if n := call(t, k, sysRead, fd, 0x200, 3); n != 3 || string(mem[0x200:0x203]) != "456" {
		t.Fatalf("read returned %d: %q", int32(n), mem[0x200:0x203])
	}
	if r := call(t, k, sysWrite, fd, 0x200, 3); r != errno(EBADF) {
		t.Fatalf("write to a read-only fd returned %d", int32(r))
	}
	if r := call(t, k, sysClose, fd); r != 0 {
		t.Fatalf("close returned %d", int32(r))
	}
	if r := call(t, k, sysClose, fd); r != errno(EBADF) {
		t.Fatalf("second close returned %d", int32(r))
	}

	copy(mem[0x100:], filepath.Join(dir, "missing")+"\x00")
	if r := call(t, k, sysOpen, 0x100, 0, 0); r != errno(ENOENT) {
		t.Fatalf("open of a missing file returned %d", int32(r))
	}

	copy(mem[0x100:], filepath.Join(dir, "new")+"\x00")
	fd = call(t, k, sysOpen, 0x100, O_WRONLY|O_CREAT|O_TRUNC, 0644)
	copy(mem[0x300:], "abc")
	if n := call(t, k, sysWrite, fd, 0x300, 3); n != 3 {
		t.Fatalf("write returned %d", int32(n))
	}
	call(t, k, sysClose, fd)
	if data, err := ioutil.ReadFile(filepath.Join(dir, "new")); err != nil || string(data) != "abc" {
		t.Fatalf("created file holds %q, %v", data, err)
	}
}

func TestOpenRoot(t *testing.T) {
	dir, err := ioutil.TempDir("", "bfin-kernel")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	if err := ioutil.WriteFile(filepath.Join(dir, "etc"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	k, mem, _ := testKernel("")
	k.Root = dir
	copy(mem[0x100:], "/etc\x00")
	if fd := call(t, k, sysOpen, 0x100, 0, 0); int32(fd) < 0 {
		t.Fatalf("open under root returned %d", int32(fd))
	}
}

func TestBrk(t *testing.T) {
	k, _, _ := testKernel("")
	k.SetBrk(0x4321)
	if b := call(t, k, sysBrk, 0); b != 0x5000 {
		t.Fatalf("initial break %#x", b)
	}
	if b := call(t, k, sysBrk, 0x9000); b != 0x9000 {
		t.Fatalf("grown break %#x", b)
	}
	if b := call(t, k, sysBrk, mmapBase+1); b != 0x9000 {
		t.Fatalf("break past the heap moved to %#x", b)
	}
	if b := call(t, k, sysBrk, 0x1000); b != 0x9000 {
		t.Fatalf("break below the image moved to %#x", b)
	}
}

func TestMmap2(t *testing.T) {
	k, _, _ := testKernel("")
	a := call(t, k, sysMmap2, 0, 0x1800, 3, MAP_ANONYMOUS, 0xffffffff, 0)
	b := call(t, k, sysMmap2, 0, 0x10, 3, MAP_ANONYMOUS, 0xffffffff, 0)
	if a != mmapBase || b != mmapBase+0x2000 {
		t.Fatalf("mappings at %#x %#x", a, b)
	}
	if r := call(t, k, sysMmap2, 0, 0x10, 3, 0, 3, 0); r != errno(ENOSYS) {
		t.Fatalf("file mapping returned %d", int32(r))
	}
}

func TestTimeAndIoctl(t *testing.T) {
	k, mem, _ := testKernel("")
	now := call(t, k, sysTime, 0x40)
	if now == 0 || binary.LittleEndian.Uint32(mem[0x40:]) != now {
		t.Fatalf("time %d stored %d", now, binary.LittleEndian.Uint32(mem[0x40:]))
	}
	if r := call(t, k, sysIoctl, 1, TCGETS, 0x80); r != errno(ENOTTY) {
		t.Fatalf("TCGETS on a buffer returned %d", int32(r))
	}
}

func TestExitAndUnknown(t *testing.T) {
	k, _, _ := testKernel("")
	if _, exited := k.Exited(); exited {
		t.Fatal("exited before exit")
	}
	call(t, k, sysExit, 0x103)
	if status, exited := k.Exited(); !exited || status != 3 {
		t.Fatalf("exit status %d %v", status, exited)
	}
	// 0 is restart_syscall, which is not served
	if r, ok := k.Syscall(0, make([]uint32, 6)); ok || r != errno(ENOSYS) {
		t.Fatalf("unknown syscall returned %d %v", int32(r), ok)
	}
	if r, ok := k.Syscall(100000, make([]uint32, 6)); ok || r != errno(ENOSYS) {
		t.Fatalf("out of range syscall returned %d %v", int32(r), ok)
	}
}
