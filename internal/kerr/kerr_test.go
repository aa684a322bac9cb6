package kerr

import (
	"fmt"
	"os"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func TestToErrno(t *testing.T) {
	testTable := []struct {
		in   error
		want unix.Errno
	}{
		{nil, 0},
		{BadDescriptor, unix.EBADF},
		{pkgerrors.Wrap(NotSeekable, "lseek"), unix.ESPIPE},
		{fmt.Errorf("open: %w", unix.ENOENT), unix.ENOENT},
		{pkgerrors.WithMessage(fmt.Errorf("copyout: %w", Fault), "read"), unix.EFAULT},
		{pkgerrors.Wrapf(FileTooLarge, "write at %d", 1<<62), unix.EFBIG},
		{&os.PathError{Op: "open", Path: "x", Err: unix.EEXIST}, unix.EEXIST},
		{os.ErrClosed, unix.EBADF},
		{fmt.Errorf("no errno here"), unix.EIO},
	}
	for _, v := range testTable {
		have := ToErrno(v.in)
		if have != v.want {
			t.Errorf("%v: want=%v have=%v", v.in, v.want, have)
		}
	}
}
