// Package kerr names the error numbers the file layer returns to callers.
//
// Every value is a plain unix.Errno, so callers can compare with == after
// unwrapping, and ToErrno recovers the number from wrapped storage errors.
package kerr

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// BadDescriptor - descriptor out of range or not bound.
	BadDescriptor = unix.EBADF
	// AccessDenied - the open file's access mode forbids the operation.
	AccessDenied = unix.EACCES
	// TooManyOpenFiles - a descriptor table or the open file table is full.
	TooManyOpenFiles = unix.EMFILE
	// OutOfMemory - a staging buffer could not be allocated.
	OutOfMemory = unix.ENOMEM
	// InvalidArgument - negative resulting offset, bad whence, bad flags.
	InvalidArgument = unix.EINVAL
	// NotSeekable - lseek on a device or pipe.
	NotSeekable = unix.ESPIPE
	// Fault - a user address could not be copied from or to.
	Fault = unix.EFAULT
	// FileTooLarge - a write would end beyond what the storage can hold.
	FileTooLarge = unix.EFBIG
)

// ToErrno extracts the error number from "err". Errors that do not carry
// one map to EIO. A nil error maps to 0.
func ToErrno(err error) unix.Errno {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	// pkg/errors wrappers implement Unwrap, errors.As sees through them
	if errors.As(err, &errno) {
		return errno
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return unix.ENOENT
	case errors.Is(err, fs.ErrExist):
		return unix.EEXIST
	case errors.Is(err, fs.ErrPermission):
		return unix.EACCES
	case errors.Is(err, os.ErrClosed):
		return unix.EBADF
	}
	return unix.EIO
}
