// Package console implements the "con:" character device that backs
// descriptors 0, 1 and 2.
package console

import (
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/inomap"
	"github.com/kfio/kfio/internal/syscallcompat"
	"github.com/kfio/kfio/internal/tlog"
	"github.com/kfio/kfio/internal/vnode"
)

// Device is a console. It is both the Storage that opens it and the single
// Vnode every open returns.
type Device struct {
	in  io.Reader
	out io.Writer

	// Serializes writers so lines from different descriptors do not interleave
	outMu sync.Mutex

	mu   sync.Mutex
	refs int
}

var (
	_ vnode.Storage = &Device{}
	_ vnode.Vnode   = &Device{}
)

// New returns a console that reads from "in" and writes to "out".
// Either may be nil: reads then return end of file and writes fail with EIO.
func New(in io.Reader, out io.Writer) *Device {
	return &Device{in: in, out: out}
}

// Host returns a console bound to the standard input and output of this
// process. Host fds 0, 1 and 2 that are closed get /dev/null so later
// os.Stdin/os.Stdout use cannot hit an unrelated file.
func Host() (*Device, error) {
	if err := ensureStdFds(); err != nil {
		return nil, err
	}
	return New(os.Stdin, os.Stdout), nil
}

// ensureStdFds opens /dev/null into every closed slot among fds 0, 1, 2.
// Opening always returns the lowest free fd, so closed slots get filled in
// order.
func ensureStdFds() error {
	for fd := 0; fd <= 2; fd++ {
		if syscallcompat.FdIsOpen(fd) {
			continue
		}
		nfd, err := syscallcompat.Open(os.DevNull, unix.O_RDWR, 0)
		if err != nil {
			return err
		}
		if nfd > 2 {
			// Someone else filled the slot in between
			unix.Close(nfd)
		}
		tlog.Debug.Printf("console: host fd %d was closed, opened %s", nfd, os.DevNull)
	}
	return nil
}

// Open implements vnode.Storage. The path and flags are ignored: there is
// exactly one console.
func (d *Device) Open(path string, flags int, mode uint32) (vnode.Vnode, error) {
	d.IncRef()
	return d, nil
}

// Ident implements vnode.Vnode.
func (d *Device) Ident() inomap.QIno {
	return inomap.NewQIno(0, inomap.TagConsole, 1)
}

// ReadAt implements vnode.Vnode. The offset is ignored.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	if d.in == nil || len(p) == 0 {
		return 0, nil
	}
	n, err := d.in.Read(p)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// WriteAt implements vnode.Vnode. The offset is ignored.
func (d *Device) WriteAt(p []byte, off int64) (int, error) {
	if d.out == nil {
		return 0, unix.EIO
	}
	d.outMu.Lock()
	defer d.outMu.Unlock()
	return d.out.Write(p)
}

// Size implements vnode.Vnode. A console has no size.
func (d *Device) Size() (int64, error) {
	return 0, nil
}

// IsSeekable implements vnode.Vnode.
func (d *Device) IsSeekable() bool {
	return false
}

// IncRef implements vnode.Vnode.
func (d *Device) IncRef() {
	d.mu.Lock()
	d.refs++
	d.mu.Unlock()
}

// Close implements vnode.Vnode. The console itself is never torn down.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refs == 0 {
		tlog.Warn.Printf("console: Close without open reference")
		return unix.EBADF
	}
	d.refs--
	return nil
}

// Refs returns the number of open references.
func (d *Device) Refs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refs
}
