// Package hostfs is a Storage backed by a directory on the host
// filesystem.
//
// Opens of the same host object (device + inode number) share one vnode.
// The vnode keeps at most one host file descriptor for reading and one for
// writing, so an object opened read-only and later write-only can serve
// both kinds of transfer.
package hostfs

import (
	"path/filepath"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/inomap"
	"github.com/kfio/kfio/internal/syscallcompat"
	"github.com/kfio/kfio/internal/tlog"
	"github.com/kfio/kfio/internal/vnode"
)

// FS serves files below a root directory.
type FS struct {
	root string
	// Protects "files" and the fd fields of all files
	mu    sync.Mutex
	files map[inomap.QIno]*file
}

var _ vnode.Storage = &FS{}

// New returns a Storage rooted at "root". The directory must exist.
func New(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var st syscall.Stat_t
	if err := syscall.Stat(abs, &st); err != nil {
		return nil, errors.Wrapf(err, "hostfs root %q", abs)
	}
	if st.Mode&syscall.S_IFMT != syscall.S_IFDIR {
		return nil, errors.Wrapf(unix.ENOTDIR, "hostfs root %q", abs)
	}
	return &FS{
		root:  abs,
		files: make(map[inomap.QIno]*file),
	}, nil
}

// hostPath maps "path" below the root. ".." components cannot escape the
// root because the path is cleaned as an absolute path first.
func (fs *FS) hostPath(path string) string {
	return filepath.Join(fs.root, filepath.Clean("/"+path))
}

// Open implements vnode.Storage.
func (fs *FS) Open(path string, flags int, mode uint32) (vnode.Vnode, error) {
	hp := fs.hostPath(path)
	fd, err := syscallcompat.Open(hp, flags, mode)
	if err != nil {
		return nil, err
	}
	st, err := syscallcompat.Fstat(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if st.Mode&syscall.S_IFMT == syscall.S_IFDIR {
		unix.Close(fd)
		return nil, unix.EISDIR
	}
	qi := inomap.QInoFromStat(st)
	acc := flags & unix.O_ACCMODE

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f := fs.files[qi]
	if f == nil {
		f = &file{
			fs:       fs,
			qi:       qi,
			name:     path,
			rfd:      -1,
			wfd:      -1,
			seekable: syscallcompat.IsSeekableMode(st.Mode),
		}
		fs.files[qi] = f
	}
	kept := false
	if (acc == unix.O_RDONLY || acc == unix.O_RDWR) && f.rfd < 0 {
		f.rfd = fd
		kept = true
	}
	if (acc == unix.O_WRONLY || acc == unix.O_RDWR) && f.wfd < 0 {
		f.wfd = fd
		kept = true
	}
	if !kept {
		// The object already has host fds for this access mode
		unix.Close(fd)
	}
	f.refs++
	tlog.Debug.Printf("hostfs: open %q ino%d refs=%d rfd=%d wfd=%d",
		path, qi.Ino, f.refs, f.rfd, f.wfd)
	return f, nil
}

// OpenObjects returns how many host objects currently have open vnodes.
func (fs *FS) OpenObjects() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.files)
}

type file struct {
	fs       *FS
	qi       inomap.QIno
	name     string
	seekable bool

	// Protected by fs.mu
	refs int
	rfd  int
	wfd  int
}

func (f *file) Ident() inomap.QIno {
	return f.qi
}

func (f *file) readFd() (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if f.refs == 0 || f.rfd < 0 {
		return -1, unix.EBADF
	}
	return f.rfd, nil
}

func (f *file) writeFd() (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if f.refs == 0 || f.wfd < 0 {
		return -1, unix.EBADF
	}
	return f.wfd, nil
}

func (f *file) ReadAt(p []byte, off int64) (int, error) {
	fd, err := f.readFd()
	if err != nil {
		return 0, err
	}
	if !f.seekable {
		return syscallcompat.Read(fd, p)
	}
	// Loop until "p" is full or we hit EOF, so a short count always means
	// end of file.
	done := 0
	for done < len(p) {
		n, err := syscallcompat.Pread(fd, p[done:], off+int64(done))
		if err != nil {
			return done, errors.Wrapf(err, "hostfs: pread %q", f.name)
		}
		if n == 0 {
			break
		}
		done += n
	}
	return done, nil
}

func (f *file) WriteAt(p []byte, off int64) (int, error) {
	fd, err := f.writeFd()
	if err != nil {
		return 0, err
	}
	if !f.seekable {
		return syscallcompat.Write(fd, p)
	}
	n, err := syscallcompat.Pwrite(fd, p, off)
	if err != nil {
		return n, errors.Wrapf(err, "hostfs: pwrite %q", f.name)
	}
	return n, nil
}

func (f *file) Size() (int64, error) {
	fd, err := f.readFd()
	if err != nil {
		fd, err = f.writeFd()
		if err != nil {
			return 0, err
		}
	}
	st, err := syscallcompat.Fstat(fd)
	if err != nil {
		return 0, err
	}
	return st.Size, nil
}

func (f *file) IsSeekable() bool {
	return f.seekable
}

func (f *file) IncRef() {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	f.refs++
}

// Close drops one reference and closes the host fds with the last one.
func (f *file) Close() error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if f.refs == 0 {
		tlog.Warn.Printf("hostfs: Close on released file %q", f.name)
		return unix.EBADF
	}
	f.refs--
	if f.refs > 0 {
		return nil
	}
	delete(f.fs.files, f.qi)
	var err error
	if f.rfd >= 0 {
		err = unix.Close(f.rfd)
	}
	if f.wfd >= 0 && f.wfd != f.rfd {
		if err2 := unix.Close(f.wfd); err == nil {
			err = err2
		}
	}
	f.rfd, f.wfd = -1, -1
	return err
}
