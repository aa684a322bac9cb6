// Package openfiletable maintains the system-wide table of open files. An
// entry exists for every storage object that has at least one descriptor,
// identified by the object's QIno, and carries the file position shared by
// all those descriptors.
package openfiletable

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/inomap"
	"github.com/kfio/kfio/internal/kerr"
	"github.com/kfio/kfio/internal/tlog"
	"github.com/kfio/kfio/internal/vnode"
)

// ConsoleSlots is the number of entries Bootstrap installs. Slot i is
// meant for descriptor i.
const ConsoleSlots = 3

var consoleModes = [ConsoleSlots]int{unix.O_RDONLY, unix.O_WRONLY, unix.O_WRONLY}

// Table is the open file table.
type Table struct {
	// Protects the slot array
	mu    sync.Mutex
	slots []*Entry
}

// New returns an empty table with room for "capacity" entries.
func New(capacity int) *Table {
	return &Table{slots: make([]*Entry, capacity)}
}

// Bootstrap returns a table with the console opened three times through
// "storage" and installed in slots 0 (read-only), 1 and 2 (write-only). The
// console entries are pinned and stay until Teardown.
func Bootstrap(capacity int, storage vnode.Storage, consolePath string) (*Table, error) {
	if capacity < ConsoleSlots {
		return nil, errors.Errorf("open file table capacity %d is below %d", capacity, ConsoleSlots)
	}
	t := New(capacity)
	for i, mode := range consoleModes {
		vn, err := storage.Open(consolePath, mode, 0)
		if err != nil {
			t.Teardown()
			return nil, errors.Wrapf(err, "opening console %q for slot %d", consolePath, i)
		}
		e := create(mode, vn)
		e.pinned = true
		t.slots[i] = e
	}
	tlog.Debug.Printf("openfiletable: bootstrapped %d console entries from %q", ConsoleSlots, consolePath)
	return t, nil
}

// Capacity returns the number of slots.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// Entry returns the entry in slot "i", or nil.
func (t *Table) Entry(i int) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.slots) {
		return nil
	}
	return t.slots[i]
}

// FindOrCreate returns the live entry for the object behind "vn", with a
// reference taken for the caller, or creates one holding the caller's
// reference. "created" reports which case applied. A reused entry keeps the
// access mode it was created with. Pinned entries are only reused when
// "accMode" matches.
//
// The caller keeps its storage reference to "vn" in both cases.
func (t *Table) FindOrCreate(accMode int, vn vnode.Vnode) (e *Entry, created bool, err error) {
	id := vn.Ident()
	t.mu.Lock()
	defer t.mu.Unlock()

	free := -1
	for i, cand := range t.slots {
		if cand == nil {
			if free < 0 {
				free = i
			}
			continue
		}
		if cand.vn.Ident() != id {
			continue
		}
		if cand.pinned && cand.accMode != accMode {
			continue
		}
		if err := cand.IncRef(); err != nil {
			// Dropped to zero, waiting for CloseEntry.
			continue
		}
		return cand, false, nil
	}
	if free < 0 {
		return nil, false, kerr.TooManyOpenFiles
	}
	e = create(accMode, vn)
	t.slots[free] = e
	return e, true, nil
}

// CloseEntry removes "e" from the table. The entry must have dropped its
// last reference. Returns BadDescriptor if "e" is not in the table.
func (t *Table) CloseEntry(e *Entry) error {
	id := e.vn.Ident()
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, cand := range t.slots {
		if cand != e || cand.vn.Ident() != id {
			continue
		}
		if refs := e.RefCount(); refs != 0 {
			tlog.Warn.Printf("openfiletable: CloseEntry on slot %d with %d references", i, refs)
			return kerr.InvalidArgument
		}
		t.slots[i] = nil
		return nil
	}
	return kerr.BadDescriptor
}

// Teardown empties the table. Pinned entries drop the table's reference
// and close their storage object. Entries that still have references are
// reported and dropped. The first storage error is returned.
func (t *Table) Teardown() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for i, e := range t.slots {
		if e == nil {
			continue
		}
		if e.pinned && !e.Closed() {
			e.DecRef()
			if err := e.vn.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		e.refMu.Lock()
		if e.refCount > 0 {
			tlog.Warn.Printf("openfiletable: slot %d (%s) still has %d references at teardown",
				i, e.vn.Ident(), e.refCount)
		}
		e.closed = true
		e.refMu.Unlock()
		t.slots[i] = nil
	}
	return firstErr
}

// CountOpenFiles returns the number of occupied slots.
func (t *Table) CountOpenFiles() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.slots {
		if e != nil {
			n++
		}
	}
	return n
}

// EntryInfo describes one occupied slot.
type EntryInfo struct {
	Slot     int
	Ident    inomap.QIno
	AccMode  int
	Offset   int64
	RefCount int
	Pinned   bool
}

// Snapshot returns the occupied slots in slot order. It does not wait for
// transfers in progress.
func (t *Table) Snapshot() []EntryInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []EntryInfo
	for i, e := range t.slots {
		if e == nil {
			continue
		}
		out = append(out, EntryInfo{
			Slot:     i,
			Ident:    e.vn.Ident(),
			AccMode:  e.accMode,
			Offset:   e.Offset(),
			RefCount: e.RefCount(),
			Pinned:   e.pinned,
		})
	}
	return out
}
