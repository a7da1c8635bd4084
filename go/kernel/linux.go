package kernel

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lunixbochs/ghostrace/ghost/sys/num"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

const (
	pageSize = 0x1000
	// anonymous mappings are carved from here up, as the uClibc nommu port
	// expects a heap in the upper half of SDRAM
	mmapBase = 0x00800000
)

// Linux open(2) flags as the Blackfin ABI numbers them.
const (
	O_ACCMODE = 3
	O_WRONLY  = 1
	O_RDWR    = 2
	O_CREAT   = 0x40
	O_EXCL    = 0x80
	O_TRUNC   = 0x200
	O_APPEND  = 0x400

	MAP_ANONYMOUS = 0x20
	TCGETS        = 0x5401
)

// File is an open guest descriptor.
type File struct {
	Path string
	r    io.Reader
	w    io.Writer
	f    *os.File
}

// LinuxKernel serves the syscall subset needed to run newlib and uClibc
// test programs: console and file I/O, the program break, time and exit.
type LinuxKernel struct {
	KernelBase
	Files map[Fd]*File
	// Root prefixes absolute paths passed to open.
	Root string

	brkBase, brk, brkLimit uint32
	mmapNext               uint32
	exited                 bool
	status                 int
}

func NewLinuxKernel(mem Memory, stdin io.Reader, stdout, stderr io.Writer, log *logrus.Entry) *LinuxKernel {
	k := &LinuxKernel{
		KernelBase: KernelBase{Mem: mem, Log: log},
		Files: map[Fd]*File{
			0: {Path: "<stdin>", r: stdin},
			1: {Path: "<stdout>", w: stdout},
			2: {Path: "<stderr>", w: stderr},
		},
		mmapNext: mmapBase,
		brkLimit: mmapBase,
	}
	for _, f := range k.Files {
		if osf, ok := f.r.(*os.File); ok {
			f.f = osf
		} else if osf, ok := f.w.(*os.File); ok {
			f.f = osf
		}
	}
	return k
}

// SetBrk places the initial program break, normally at the end of the
// loaded image.
func (k *LinuxKernel) SetBrk(addr uint32) {
	addr = (addr + pageSize - 1) &^ (pageSize - 1)
	k.brkBase, k.brk = addr, addr
}

// Exited reports whether the program called exit and with which status.
func (k *LinuxKernel) Exited() (int, bool) {
	return k.status, k.exited
}

// Syscall runs syscall number nr. ok is false when the kernel has no
// handler, R0 then gets -ENOSYS.
func (k *LinuxKernel) Syscall(nr int, args []uint32) (ret uint32, ok bool) {
	name, known := num.Linux_x86[nr]
	if !known {
		return errno(ENOSYS), false
	}
	sys := Lookup(k, name)
	if sys == nil {
		return errno(ENOSYS), false
	}
	ret, err := sys.Call(args)
	if err != nil {
		if k.Log != nil {
			k.Log.WithError(err).Warn("syscall argument")
		}
		return errno(EFAULT), true
	}
	if k.Log != nil {
		k.Log.Debugf("%s = %#x", sys.Trace(args), ret)
	}
	return ret, true
}

func (k *LinuxKernel) Exit(code uint32) {
	k.exited = true
	k.status = int(code & 0xff)
}

func (k *LinuxKernel) ExitGroup(code uint32) {
	k.Exit(code)
}

func (k *LinuxKernel) Read(fd Fd, buf Obuf, size Len) uint32 {
	f, ok := k.Files[fd]
	if !ok || f.r == nil {
		return errno(EBADF)
	}
	tmp := make([]byte, size)
	n, err := f.r.Read(tmp)
	if err != nil && err != io.EOF {
		return hostErrno(err)
	}
	if err := k.Mem.MemWrite(buf.Addr, tmp[:n]); err != nil {
		return errno(EFAULT)
	}
	return uint32(n)
}

func (k *LinuxKernel) Write(fd Fd, buf Buf, size Len) uint32 {
	f, ok := k.Files[fd]
	if !ok || f.w == nil {
		return errno(EBADF)
	}
	tmp, err := k.Mem.MemRead(buf.Addr, int(size))
	if err != nil {
		return errno(EFAULT)
	}
	n, err := f.w.Write(tmp)
	if err != nil {
		return hostErrno(err)
	}
	return uint32(n)
}

func (k *LinuxKernel) Open(path string, flags uint32, mode uint32) uint32 {
	if k.Root != "" && filepath.IsAbs(path) {
		path = filepath.Join(k.Root, path)
	}
	hostFlags := os.O_RDONLY
	switch flags & O_ACCMODE {
	case O_WRONLY:
		hostFlags = os.O_WRONLY
	case O_RDWR:
		hostFlags = os.O_RDWR
	}
	for _, m := range []struct{ guest, host int }{
		{O_CREAT, os.O_CREATE}, {O_EXCL, os.O_EXCL}, {O_TRUNC, os.O_TRUNC}, {O_APPEND, os.O_APPEND},
	} {
		if flags&uint32(m.guest) != 0 {
			hostFlags |= m.host
		}
	}
	f, err := os.OpenFile(path, hostFlags, os.FileMode(mode&0777))
	if err != nil {
		return hostErrno(err)
	}
	fd := Fd(3)
	for k.Files[fd] != nil {
		fd++
	}
	file := &File{Path: path, f: f}
	if hostFlags&(os.O_WRONLY|os.O_RDWR) != os.O_WRONLY {
		file.r = f
	}
	if hostFlags&(os.O_WRONLY|os.O_RDWR) != 0 {
		file.w = f
	}
	k.Files[fd] = file
	return uint32(fd)
}

func (k *LinuxKernel) Close(fd Fd) uint32 {
	f, ok := k.Files[fd]
	if !ok {
		return errno(EBADF)
	}
	delete(k.Files, fd)
	// the host's standard streams stay open
	if fd > 2 && f.f != nil {
		if err := f.f.Close(); err != nil {
			return hostErrno(err)
		}
	}
	return 0
}

func (k *LinuxKernel) Lseek(fd Fd, off Off, whence int) uint32 {
	f, ok := k.Files[fd]
	if !ok {
		return errno(EBADF)
	}
	if f.f == nil {
		return errno(ESPIPE)
	}
	pos, err := f.f.Seek(int64(off), whence)
	if err != nil {
		return hostErrno(err)
	}
	return uint32(pos)
}

// Brk moves the program break. Requests outside the heap leave it where it
// is, which the guest reads as failure.
func (k *LinuxKernel) Brk(addr uint32) uint32 {
	if addr >= k.brkBase && addr <= k.brkLimit {
		k.brk = addr
	}
	return k.brk
}

// Mmap2 only hands out anonymous memory. SDRAM is already backed, so the
// range just has to be reserved.
func (k *LinuxKernel) Mmap2(addr, size, prot, flags uint32, fd Fd, pgoff uint32) uint32 {
	if flags&MAP_ANONYMOUS == 0 {
		return errno(ENOSYS)
	}
	ret := k.mmapNext
	k.mmapNext = (ret + size + pageSize - 1) &^ (pageSize - 1)
	return ret
}

func (k *LinuxKernel) Munmap(addr, size uint32) uint32 {
	return 0
}

func (k *LinuxKernel) Getpid() uint32 {
	return uint32(os.Getpid())
}

func (k *LinuxKernel) Time(tloc Ptr) uint32 {
	now := struct{ Sec uint32 }{uint32(time.Now().Unix())}
	if tloc != 0 {
		if err := (Buf{Addr: uint32(tloc), K: &k.KernelBase}).Pack(&now); err != nil {
			return errno(EFAULT)
		}
	}
	return now.Sec
}

type timeval struct {
	Sec  uint32
	Usec uint32
}

func (k *LinuxKernel) Gettimeofday(tv Obuf, tz Ptr) uint32 {
	if tv.Addr == 0 {
		return 0
	}
	now := time.Now()
	val := timeval{uint32(now.Unix()), uint32(now.Nanosecond() / 1000)}
	if err := tv.Pack(&val); err != nil {
		return errno(EFAULT)
	}
	return 0
}

// Ioctl only answers the terminal probe stdio makes on its streams.
func (k *LinuxKernel) Ioctl(fd Fd, req uint32, arg uint32) uint32 {
	f, ok := k.Files[fd]
	if !ok {
		return errno(EBADF)
	}
	if req != TCGETS {
		return errno(EINVAL)
	}
	if f.f != nil && isatty.IsTerminal(f.f.Fd()) {
		return 0
	}
	return errno(ENOTTY)
}
