// Package syscallcompat wraps the host system calls used by the hostfs
// storage backend.
package syscallcompat

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// retryEINTR executes operation `op` and retries if it gets EINTR.
//
// Like ignoringEINTR() in the Go stdlib:
// https://github.com/golang/go/blob/d2a80f3fb5b44450e0b304ac5a718f99c053d82a/src/os/file_posix.go#L243
//
// Don't use retryEINTR() with syscall.Close()!
// See https://code.google.com/p/chromium/issues/detail?id=269623 .
func retryEINTR(op func() error) error {
	for {
		err := op()
		if err != syscall.EINTR {
			return err
		}
	}
}

// retryEINTR2 is like retryEINTR but for functions that return an (int, error)
// pair like syscall.Open().
func retryEINTR2(op func() (int, error)) (int, error) {
	for {
		ret, err := op()
		if err != syscall.EINTR {
			return ret, err
		}
	}
}

// Open wraps unix.Open and always adds O_CLOEXEC.
// Retries on EINTR.
func Open(path string, flags int, perm uint32) (fd int, err error) {
	fd, err = retryEINTR2(func() (int, error) {
		return unix.Open(path, flags|unix.O_CLOEXEC, perm)
	})
	return fd, err
}

// Pread wraps unix.Pread.
// Retries on EINTR.
func Pread(fd int, p []byte, off int64) (int, error) {
	return retryEINTR2(func() (int, error) {
		return unix.Pread(fd, p, off)
	})
}

// Pwrite wraps unix.Pwrite. Short writes are continued until all of "p" is
// written or an error occurs.
// Retries on EINTR.
func Pwrite(fd int, p []byte, off int64) (done int, err error) {
	for done < len(p) {
		n, err := retryEINTR2(func() (int, error) {
			return unix.Pwrite(fd, p[done:], off+int64(done))
		})
		if err != nil {
			return done, err
		}
		if n == 0 {
			return done, syscall.EIO
		}
		done += n
	}
	return done, nil
}

// Read wraps unix.Read for objects without a file position of their own,
// like pipes and character devices.
// Retries on EINTR.
func Read(fd int, p []byte) (int, error) {
	return retryEINTR2(func() (int, error) {
		return unix.Read(fd, p)
	})
}

// Write wraps unix.Write.
// Retries on EINTR.
func Write(fd int, p []byte) (int, error) {
	return retryEINTR2(func() (int, error) {
		return unix.Write(fd, p)
	})
}

// Fstat wraps unix.Fstat and converts the result to syscall.Stat_t.
// Retries on EINTR.
func Fstat(fd int) (*syscall.Stat_t, error) {
	var st syscall.Stat_t
	err := retryEINTR(func() error {
		return syscall.Fstat(fd, &st)
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// IsSeekableMode reports whether an object with the file type bits in "mode"
// has a meaningful file position.
func IsSeekableMode(mode uint32) bool {
	switch mode & syscall.S_IFMT {
	case syscall.S_IFREG, syscall.S_IFBLK:
		return true
	}
	return false
}

// FdIsOpen reports whether "fd" is an open file descriptor in this process.
func FdIsOpen(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}
