package kern

import (
	"log"
	"math"

	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/kerr"
	"github.com/kfio/kfio/internal/openfiletable"
	"github.com/kfio/kfio/internal/tlog"
	"github.com/kfio/kfio/internal/usermem"
)

func validAccMode(m int) bool {
	return m == unix.O_RDONLY || m == unix.O_WRONLY || m == unix.O_RDWR
}

// Open opens "path" and binds it to the lowest free descriptor. Opening an
// object that is already open shares its entry, and the shared offset is
// reset to 0. The descriptor is limited to the access mode in "flags" even
// when the shared entry allows more.
func (p *Proc) Open(path string, flags int, mode uint32) (int, error) {
	acc := flags & unix.O_ACCMODE
	if !validAccMode(acc) {
		return -1, kerr.InvalidArgument
	}
	vn, err := p.k.storage.Open(path, flags, mode)
	if err != nil {
		tlog.Debug.Printf("kern: pid %d open(%q, %#x): %v", p.pid, path, flags, err)
		return -1, err
	}
	e, created, err := p.k.oft.FindOrCreate(acc, vn)
	if err != nil {
		vn.Close()
		return -1, err
	}
	if !validAccMode(e.AccMode()) {
		log.Panicf("open file entry with access mode %#x", e.AccMode())
	}
	l := e.Lock()
	l.SetOffset(0)
	l.Unlock()

	fd, err := p.fdt.Bind(e, acc)
	// The binding holds its own reference now
	p.k.release(e)
	if err != nil {
		vn.Close()
		return -1, err
	}
	tlog.Debug.Printf("kern: pid %d open(%q, %#x) = %d, new entry: %v", p.pid, path, flags, fd, created)
	return fd, nil
}

// Close unbinds "fd" and releases its storage reference. The entry goes
// away with its last descriptor.
func (p *Proc) Close(fd int) error {
	e, last, err := p.fdt.Unbind(fd)
	if err != nil {
		return err
	}
	tlog.Debug.Printf("kern: pid %d close(%d), last: %v", p.pid, fd, last)
	return p.closeBinding(e, last)
}

// Read reads up to "n" bytes at the file position into user memory at
// "buf" and advances the position.
func (p *Proc) Read(fd int, buf usermem.Addr, n int) (int, error) {
	e, acc, err := p.fdt.Resolve(fd)
	if err != nil {
		return -1, err
	}
	if !openfiletable.CanRead(acc) {
		return -1, kerr.AccessDenied
	}
	kb, err := p.k.bufs.Get(n)
	if err != nil {
		return -1, err
	}
	defer p.k.bufs.Put(kb)

	l := e.Lock()
	defer l.Unlock()
	if l.Closed() {
		return -1, kerr.BadDescriptor
	}
	got, err := e.Vnode().ReadAt(kb, l.Offset())
	if err != nil {
		return -1, err
	}
	l.Advance(got)
	if err := p.mem.CopyOut(buf, kb[:got]); err != nil {
		return -1, err
	}
	return got, nil
}

// Write writes "n" bytes from user memory at "buf" at the file position and
// advances the position.
func (p *Proc) Write(fd int, buf usermem.Addr, n int) (int, error) {
	e, acc, err := p.fdt.Resolve(fd)
	if err != nil {
		return -1, err
	}
	if !openfiletable.CanWrite(acc) {
		return -1, kerr.AccessDenied
	}
	kb, err := p.k.bufs.Get(n)
	if err != nil {
		return -1, err
	}
	defer p.k.bufs.Put(kb)
	if err := p.mem.CopyIn(buf, kb); err != nil {
		return -1, err
	}

	l := e.Lock()
	defer l.Unlock()
	if l.Closed() {
		return -1, kerr.BadDescriptor
	}
	done, err := e.Vnode().WriteAt(kb, l.Offset())
	l.Advance(done)
	if err != nil {
		return -1, err
	}
	return done, nil
}

// Lseek moves the file position of "fd" and returns the new position.
func (p *Proc) Lseek(fd int, off int64, whence int) (int64, error) {
	e, _, err := p.fdt.Resolve(fd)
	if err != nil {
		return -1, err
	}
	l := e.Lock()
	defer l.Unlock()
	if l.Closed() {
		return -1, kerr.BadDescriptor
	}

	var base int64
	switch whence {
	case unix.SEEK_SET:
	case unix.SEEK_CUR:
		base = l.Offset()
	case unix.SEEK_END:
		base, err = e.Vnode().Size()
		if err != nil {
			return -1, err
		}
	default:
		return -1, kerr.InvalidArgument
	}
	if (off > 0 && base > math.MaxInt64-off) || (off < 0 && base < math.MinInt64-off) {
		return -1, kerr.InvalidArgument
	}
	pos := base + off
	if pos < 0 {
		return -1, kerr.InvalidArgument
	}
	if !e.Vnode().IsSeekable() {
		return -1, kerr.NotSeekable
	}
	l.SetOffset(pos)
	return pos, nil
}

// Dup2 makes "newfd" refer to the open file behind "oldfd". A file open on
// "newfd" is closed first.
func (p *Proc) Dup2(oldfd, newfd int) (int, error) {
	if oldfd < 0 || oldfd >= p.fdt.Capacity() || newfd < 0 || newfd >= p.fdt.Capacity() {
		return -1, kerr.BadDescriptor
	}
	if _, _, err := p.fdt.Resolve(oldfd); err != nil {
		return -1, err
	}
	if oldfd == newfd {
		return newfd, nil
	}
	if _, _, err := p.fdt.Resolve(newfd); err == nil {
		// Another thread may close newfd first, that is fine.
		if err := p.Close(newfd); err != nil && err != kerr.BadDescriptor {
			return -1, err
		}
	}
	displaced, err := p.fdt.Dup2(oldfd, newfd)
	if err != nil {
		return -1, err
	}
	if displaced != nil {
		if err := p.closeBinding(displaced.Entry, displaced.Last); err != nil {
			tlog.Warn.Printf("kern: pid %d dup2(%d, %d): closing displaced binding: %v",
				p.pid, oldfd, newfd, err)
		}
	}
	tlog.Debug.Printf("kern: pid %d dup2(%d, %d)", p.pid, oldfd, newfd)
	return newfd, nil
}
