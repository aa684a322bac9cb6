// Package memfs is an in-memory, flat-namespace Storage. Paths are opaque
// names; there are no directories.
package memfs

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/inomap"
	"github.com/kfio/kfio/internal/tlog"
	"github.com/kfio/kfio/internal/vnode"
)

// MaxFileSize is the largest file memfs stores. Writes that would end
// beyond it fail with EFBIG.
const MaxFileSize = 1 << 32

// FS is an in-memory filesystem. The zero value is not usable, call New().
type FS struct {
	// Protects "nodes" and "nextIno"
	mu      sync.Mutex
	nodes   map[string]*node
	nextIno uint64
	// dev distinguishes several FS instances in QIno.Dev
	dev uint64
}

var _ vnode.Storage = &FS{}

var devCounter struct {
	sync.Mutex
	next uint64
}

// New returns an empty filesystem.
func New() *FS {
	devCounter.Lock()
	devCounter.next++
	dev := devCounter.next
	devCounter.Unlock()
	return &FS{
		nodes:   make(map[string]*node),
		nextIno: 1,
		dev:     dev,
	}
}

// Open implements vnode.Storage.
//
// Supported flags are the access mode, O_CREAT, O_EXCL and O_TRUNC. All
// opens of the same name return the same vnode.
func (fs *FS) Open(path string, flags int, mode uint32) (vnode.Vnode, error) {
	if path == "" {
		return nil, unix.ENOENT
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := fs.nodes[path]
	if n == nil {
		if flags&unix.O_CREAT == 0 {
			return nil, unix.ENOENT
		}
		n = &node{
			fs:       fs,
			name:     path,
			qi:       inomap.NewQIno(fs.dev, inomap.TagMem, fs.nextIno),
			mode:     mode,
			seekable: true,
		}
		fs.nextIno++
		fs.nodes[path] = n
		tlog.Debug.Printf("memfs: created %q ino%d mode %#o", path, n.qi.Ino, mode)
	} else if flags&unix.O_CREAT != 0 && flags&unix.O_EXCL != 0 {
		return nil, unix.EEXIST
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if flags&unix.O_TRUNC != 0 && flags&unix.O_ACCMODE != unix.O_RDONLY {
		n.data = n.data[:0]
	}
	n.refs++
	return n, nil
}

// OpenCount returns the number of open references on "path", or -1 if
// "path" does not exist.
func (fs *FS) OpenCount(path string) int {
	fs.mu.Lock()
	n := fs.nodes[path]
	fs.mu.Unlock()
	if n == nil {
		return -1
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.refs
}

// Contents returns a copy of the data stored under "path".
func (fs *FS) Contents(path string) ([]byte, bool) {
	fs.mu.Lock()
	n := fs.nodes[path]
	fs.mu.Unlock()
	if n == nil {
		return nil, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]byte(nil), n.data...), true
}

// SetSeekable marks "path" as seekable or not. Used to model pipes and
// devices in tests.
func (fs *FS) SetSeekable(path string, seekable bool) bool {
	fs.mu.Lock()
	n := fs.nodes[path]
	fs.mu.Unlock()
	if n == nil {
		return false
	}
	n.mu.Lock()
	n.seekable = seekable
	n.mu.Unlock()
	return true
}

// node is one file. Nodes are never removed from the namespace.
type node struct {
	fs   *FS
	name string
	qi   inomap.QIno
	mode uint32

	mu       sync.Mutex
	data     []byte
	refs     int
	seekable bool
}

func (n *node) Ident() inomap.QIno {
	return n.qi
}

func (n *node) ReadAt(p []byte, off int64) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.refs == 0 {
		return 0, unix.EBADF
	}
	if off < 0 {
		return 0, unix.EINVAL
	}
	if off >= int64(len(n.data)) {
		return 0, nil
	}
	return copy(p, n.data[off:]), nil
}

func (n *node) WriteAt(p []byte, off int64) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.refs == 0 {
		return 0, unix.EBADF
	}
	if off < 0 {
		return 0, unix.EINVAL
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off > MaxFileSize || int64(len(p)) > MaxFileSize-off {
		return 0, unix.EFBIG
	}
	end := off + int64(len(p))
	if end > int64(len(n.data)) {
		if end > int64(cap(n.data)) {
			newCap := 2 * int64(cap(n.data))
			if newCap < end {
				newCap = end
			}
			if newCap > MaxFileSize {
				newCap = MaxFileSize
			}
			grown := make([]byte, end, newCap)
			copy(grown, n.data)
			n.data = grown
		} else {
			// Zero-fill a hole that may contain stale bytes from a truncate
			old := len(n.data)
			n.data = n.data[:end]
			for i := old; i < int(off) && i < len(n.data); i++ {
				n.data[i] = 0
			}
		}
	}
	return copy(n.data[off:], p), nil
}

func (n *node) Size() (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return int64(len(n.data)), nil
}

func (n *node) IsSeekable() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seekable
}

func (n *node) IncRef() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.refs == 0 {
		tlog.Warn.Printf("memfs: IncRef on closed node %q", n.name)
	}
	n.refs++
}

func (n *node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.refs == 0 {
		tlog.Warn.Printf("memfs: Close on closed node %q", n.name)
		return unix.EBADF
	}
	n.refs--
	return nil
}
