// Package fdtable implements the per-process file descriptor table.
//
// A descriptor slot is either empty or bound to an open file table entry
// together with the access mode the descriptor was opened with. Every
// binding owns one entry reference and one reference on the entry's
// storage object. The table never destroys entries; callers release
// storage and remove entries from the open file table.
//
// The table mutex is never held while an entry lock is taken.
package fdtable

import (
	"sync"

	"github.com/kfio/kfio/internal/kerr"
	"github.com/kfio/kfio/internal/openfiletable"
)

// binding is one bound descriptor. "acc" may be narrower than the entry's
// own access mode when the entry is shared.
type binding struct {
	e   *openfiletable.Entry
	acc int
}

// Table is a descriptor table.
type Table struct {
	mu    sync.Mutex
	slots []binding
}

// New returns a table with "capacity" unbound descriptors.
func New(capacity int) *Table {
	return &Table{slots: make([]binding, capacity)}
}

// Capacity returns the number of descriptors.
func (t *Table) Capacity() int {
	return len(t.slots)
}

func (t *Table) inRange(fd int) bool {
	return fd >= 0 && fd < len(t.slots)
}

// Count returns the number of bound descriptors.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, b := range t.slots {
		if b.e != nil {
			n++
		}
	}
	return n
}

// Bind binds "e" with access mode "acc" to the lowest free descriptor. It
// takes an entry reference and takes over the caller's storage reference.
// The caller must hold a reference on "e" for the duration of the call.
//
// Returns TooManyOpenFiles if no descriptor is free, in which case the
// storage reference stays with the caller.
func (t *Table) Bind(e *openfiletable.Entry, acc int) (int, error) {
	if err := e.IncRef(); err != nil {
		return -1, err
	}
	t.mu.Lock()
	for fd, cur := range t.slots {
		if cur.e == nil {
			t.slots[fd] = binding{e: e, acc: acc}
			t.mu.Unlock()
			return fd, nil
		}
	}
	t.mu.Unlock()
	e.DecRef()
	return -1, kerr.TooManyOpenFiles
}

// Install binds "e" with access mode "acc" to descriptor "fd", taking an
// entry reference and a storage reference. "fd" must be unbound.
func (t *Table) Install(fd int, e *openfiletable.Entry, acc int) error {
	if !t.inRange(fd) {
		return kerr.BadDescriptor
	}
	if err := ref(e); err != nil {
		return err
	}
	t.mu.Lock()
	if t.slots[fd].e == nil {
		t.slots[fd] = binding{e: e, acc: acc}
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()
	unref(e)
	return kerr.InvalidArgument
}

// ref takes an entry reference and a storage reference.
func ref(e *openfiletable.Entry) error {
	if err := e.IncRef(); err != nil {
		return err
	}
	e.Vnode().IncRef()
	return nil
}

// unref undoes ref. The caller's own reference keeps the entry alive.
func unref(e *openfiletable.Entry) {
	e.Vnode().Close()
	e.DecRef()
}

// Resolve returns the entry bound to "fd" and the access mode of the
// descriptor.
func (t *Table) Resolve(fd int) (e *openfiletable.Entry, acc int, err error) {
	if !t.inRange(fd) {
		return nil, 0, kerr.BadDescriptor
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.slots[fd]
	if b.e == nil {
		return nil, 0, kerr.BadDescriptor
	}
	return b.e, b.acc, nil
}

// Unbind clears descriptor "fd" and drops the binding's entry reference.
// "last" reports whether that was the entry's last reference. The storage
// reference is handed to the caller.
func (t *Table) Unbind(fd int) (e *openfiletable.Entry, last bool, err error) {
	if !t.inRange(fd) {
		return nil, false, kerr.BadDescriptor
	}
	t.mu.Lock()
	e = t.slots[fd].e
	t.slots[fd] = binding{}
	t.mu.Unlock()
	if e == nil {
		return nil, false, kerr.BadDescriptor
	}
	return e, e.DecRef(), nil
}

// Dup2 binds "newfd" to the entry behind "oldfd" with the same access mode,
// taking an entry reference and a storage reference. A binding that was
// present on "newfd" is returned as "displaced" with its storage reference
// still owned; the caller closes it. Dup2 with oldfd == newfd only checks
// that oldfd is bound.
func (t *Table) Dup2(oldfd, newfd int) (displaced *Released, err error) {
	if !t.inRange(oldfd) || !t.inRange(newfd) {
		return nil, kerr.BadDescriptor
	}
	e, acc, err := t.Resolve(oldfd)
	if err != nil {
		return nil, err
	}
	if oldfd == newfd {
		return nil, nil
	}
	if err := ref(e); err != nil {
		return nil, err
	}
	t.mu.Lock()
	prev := t.slots[newfd].e
	t.slots[newfd] = binding{e: e, acc: acc}
	t.mu.Unlock()
	if prev == nil {
		return nil, nil
	}
	return &Released{Fd: newfd, Entry: prev, Last: prev.DecRef()}, nil
}

// Released is a binding removed from the table. Its entry reference has
// been dropped; its storage reference has not.
type Released struct {
	Fd    int
	Entry *openfiletable.Entry
	// Last is true if the entry has no references left.
	Last bool
}

// Destroy unbinds every descriptor and returns the released bindings in
// descriptor order.
func (t *Table) Destroy() []Released {
	t.mu.Lock()
	var out []Released
	for fd, b := range t.slots {
		if b.e != nil {
			out = append(out, Released{Fd: fd, Entry: b.e})
			t.slots[fd] = binding{}
		}
	}
	t.mu.Unlock()
	for i := range out {
		out[i].Last = out[i].Entry.DecRef()
	}
	return out
}
