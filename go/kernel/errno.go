package kernel

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// Linux errno values. The guest sees these whatever the host OS is.
const (
	EPERM  = 1
	ENOENT = 2
	EIO    = 5
	EBADF  = 9
	EACCES = 13
	EFAULT = 14
	EEXIST = 17
	EISDIR = 21
	EINVAL = 22
	ENOTTY = 25
	ESPIPE = 29
	ENOSYS = 38
)

// errno is the syscall return for a failure: -e in R0.
func errno(e int) uint32 {
	return uint32(-int32(e))
}

// hostErrno maps a host error onto the guest's errno numbering.
func hostErrno(err error) uint32 {
	err = errors.Cause(err)
	if pe, ok := err.(*os.PathError); ok {
		err = pe.Err
	}
	switch {
	case os.IsNotExist(err):
		return errno(ENOENT)
	case os.IsExist(err):
		return errno(EEXIST)
	case os.IsPermission(err):
		return errno(EACCES)
	}
	switch err {
	case syscall.EISDIR:
		return errno(EISDIR)
	case syscall.EINVAL:
		return errno(EINVAL)
	case syscall.ESPIPE:
		return errno(ESPIPE)
	case os.ErrClosed:
		return errno(EBADF)
	}
	return errno(EIO)
}
