// Package vnode defines the storage layer below the open file table.
//
// A Storage opens objects by path. A Vnode is an open object. Storage
// implementations must return the same Vnode for every open of the same
// underlying object and count opens: each successful Open and each IncRef
// must be matched by exactly one Close. The open file table relies on this
// to deduplicate entries by Ident().
package vnode

import (
	"github.com/kfio/kfio/internal/inomap"
)

// Vnode is an open storage object.
type Vnode interface {
	// Ident returns the identity of the underlying object. Two Vnodes with
	// equal Ident are the same object.
	Ident() inomap.QIno
	// ReadAt reads up to len(p) bytes starting at "off". A short count with
	// a nil error means end of file; (0, nil) is returned at or past the end.
	// Non-seekable objects ignore "off".
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt writes "p" at "off" and returns the number of bytes written.
	// Non-seekable objects ignore "off".
	WriteAt(p []byte, off int64) (int, error)
	// Size returns the current size of the object in bytes.
	Size() (int64, error)
	// IsSeekable reports whether the object has a meaningful file position.
	IsSeekable() bool
	// IncRef takes an additional open reference.
	IncRef()
	// Close drops one open reference. The object is released when the
	// last reference is dropped.
	Close() error
}

// Storage opens storage objects by path.
type Storage interface {
	Open(path string, flags int, mode uint32) (Vnode, error)
}
