package openfiletable

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/kerr"
	"github.com/kfio/kfio/internal/vnode"
)

// Entry is an open file: an access mode, a file position and the storage
// object. Descriptors in one or more processes share an Entry.
//
// An entry has two locks. The I/O lock (Lock) serializes offset updates
// with storage calls and may be held while a storage call blocks. The
// reference lock guards refCount and closed, is never held across storage
// calls and is the only entry lock the table takes under its own mutex.
// Lock order: table mutex, I/O lock, reference lock.
type Entry struct {
	// accMode is one of O_RDONLY, O_WRONLY, O_RDWR. Never changes.
	accMode int
	vn      vnode.Vnode
	// pinned entries hold a reference owned by the table itself. Set before
	// the entry is published.
	pinned bool

	// I/O lock
	ioMu sync.Mutex
	// Written only under ioMu. Atomic so that Snapshot can read it without
	// waiting for a blocked transfer.
	offset atomic.Int64

	// Reference lock
	refMu    sync.Mutex
	refCount int
	closed   bool
}

// create returns a fresh entry holding the creator's reference.
func create(accMode int, vn vnode.Vnode) *Entry {
	return &Entry{
		accMode:  accMode,
		vn:       vn,
		refCount: 1,
	}
}

// AccMode returns the access mode the entry was created with.
func (e *Entry) AccMode() int {
	return e.accMode
}

// Vnode returns the storage object.
func (e *Entry) Vnode() vnode.Vnode {
	return e.vn
}

// Pinned reports whether the table holds a reference of its own.
func (e *Entry) Pinned() bool {
	return e.pinned
}

// IncRef takes a reference. A closed entry cannot be revived.
func (e *Entry) IncRef() error {
	e.refMu.Lock()
	defer e.refMu.Unlock()
	if e.closed {
		return kerr.BadDescriptor
	}
	e.refCount++
	return nil
}

// DecRef drops a reference and reports whether it was the last one. The
// entry is marked closed when the count reaches zero; the caller must then
// remove it with Table.CloseEntry.
func (e *Entry) DecRef() (last bool) {
	e.refMu.Lock()
	defer e.refMu.Unlock()
	if e.refCount <= 0 {
		panic("openfiletable: DecRef on entry without references")
	}
	e.refCount--
	if e.refCount == 0 {
		e.closed = true
		return true
	}
	return false
}

// RefCount returns the number of references.
func (e *Entry) RefCount() int {
	e.refMu.Lock()
	defer e.refMu.Unlock()
	return e.refCount
}

// Closed reports whether the last reference has been dropped.
func (e *Entry) Closed() bool {
	e.refMu.Lock()
	defer e.refMu.Unlock()
	return e.closed
}

// Offset returns the file position without taking the I/O lock. The value
// may be stale by the time the caller looks at it.
func (e *Entry) Offset() int64 {
	return e.offset.Load()
}

// Lock takes the I/O lock and returns the view through which the offset is
// moved. Use as
//
//	l := e.Lock()
//	defer l.Unlock()
func (e *Entry) Lock() Locked {
	e.ioMu.Lock()
	return Locked{e: e}
}

// Locked is an Entry whose I/O lock is held.
type Locked struct {
	e *Entry
}

// Unlock releases the I/O lock. The view must not be used afterwards.
func (l Locked) Unlock() {
	l.e.ioMu.Unlock()
}

// Offset returns the current file position.
func (l Locked) Offset() int64 {
	return l.e.offset.Load()
}

// SetOffset moves the file position.
func (l Locked) SetOffset(off int64) {
	l.e.offset.Store(off)
}

// Advance moves the file position forward by "n" bytes.
func (l Locked) Advance(n int) {
	l.e.offset.Add(int64(n))
}

// Closed reports whether the last reference has been dropped.
func (l Locked) Closed() bool {
	return l.e.Closed()
}

// CanRead reports whether access mode "acc" allows reading.
func CanRead(acc int) bool {
	return acc != unix.O_WRONLY
}

// CanWrite reports whether access mode "acc" allows writing.
func CanWrite(acc int) bool {
	return acc != unix.O_RDONLY
}
