// Package kern is the file system call layer. A Kernel owns the open file
// table shared by all processes; a Proc owns a descriptor table and an
// address space and exposes open, close, read, write, lseek and dup2.
package kern

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/kfio/kfio/internal/fdtable"
	"github.com/kfio/kfio/internal/kbuf"
	"github.com/kfio/kfio/internal/openfiletable"
	"github.com/kfio/kfio/internal/tlog"
	"github.com/kfio/kfio/internal/usermem"
	"github.com/kfio/kfio/internal/vnode"
)

// Config holds the kernel limits.
type Config struct {
	// OpenMax is the size of each process' descriptor table.
	OpenMax int
	// SystemOpenMax is the size of the open file table.
	SystemOpenMax int
	// MaxIO is the largest read or write transfer.
	MaxIO int
	// Console is the path the standard descriptors are opened from.
	Console string
}

// DefaultConfig matches the limits of the classic teaching kernel.
var DefaultConfig = Config{
	OpenMax:       128,
	SystemOpenMax: 128,
	MaxIO:         1 << 20,
	Console:       "con:",
}

// Kernel is the system-wide state.
type Kernel struct {
	cfg     Config
	storage vnode.Storage
	oft     *openfiletable.Table
	bufs    *kbuf.Pool
	lastPid int32
}

// Boot creates the open file table with the console entries in place.
func Boot(cfg Config, storage vnode.Storage) (*Kernel, error) {
	if cfg.OpenMax < openfiletable.ConsoleSlots {
		return nil, errors.Errorf("OpenMax %d is below %d", cfg.OpenMax, openfiletable.ConsoleSlots)
	}
	if cfg.MaxIO <= 0 {
		return nil, errors.Errorf("MaxIO %d must be positive", cfg.MaxIO)
	}
	oft, err := openfiletable.Bootstrap(cfg.SystemOpenMax, storage, cfg.Console)
	if err != nil {
		return nil, err
	}
	tlog.Debug.Printf("kern: booted, OpenMax=%d SystemOpenMax=%d MaxIO=%d",
		cfg.OpenMax, cfg.SystemOpenMax, cfg.MaxIO)
	return &Kernel{
		cfg:     cfg,
		storage: storage,
		oft:     oft,
		bufs:    kbuf.New(cfg.MaxIO),
	}, nil
}

// Config returns the limits the kernel was booted with.
func (k *Kernel) Config() Config {
	return k.cfg
}

// Files returns the open file table.
func (k *Kernel) Files() *openfiletable.Table {
	return k.oft
}

// Shutdown tears down the open file table. All processes must have exited.
func (k *Kernel) Shutdown() error {
	tlog.Debug.Printf("kern: shutdown, %d open files", k.oft.CountOpenFiles())
	return k.oft.Teardown()
}

// NewProc creates a process with descriptors 0, 1 and 2 bound to the
// console entries.
func (k *Kernel) NewProc(mem usermem.AddressSpace) (*Proc, error) {
	p := &Proc{
		k:   k,
		pid: int(atomic.AddInt32(&k.lastPid, 1)),
		fdt: fdtable.New(k.cfg.OpenMax),
		mem: mem,
	}
	for fd := 0; fd < openfiletable.ConsoleSlots; fd++ {
		e := k.oft.Entry(fd)
		if e == nil {
			p.Exit()
			return nil, errors.Errorf("no console entry in slot %d", fd)
		}
		if err := p.fdt.Install(fd, e, e.AccMode()); err != nil {
			p.Exit()
			return nil, errors.Wrapf(err, "installing console descriptor %d", fd)
		}
	}
	tlog.Debug.Printf("kern: pid %d created", p.pid)
	return p, nil
}

// release drops a reference on "e" that is not owned by a binding, and
// removes the entry from the open file table if it was the last one.
func (k *Kernel) release(e *openfiletable.Entry) {
	if e.DecRef() {
		k.closeEntry(e)
	}
}

func (k *Kernel) closeEntry(e *openfiletable.Entry) {
	if err := k.oft.CloseEntry(e); err != nil {
		tlog.Warn.Printf("kern: removing %s from the open file table: %v", e.Vnode().Ident(), err)
	}
}

// Proc is a process: a descriptor table and an address space.
type Proc struct {
	k   *Kernel
	pid int
	fdt *fdtable.Table
	mem usermem.AddressSpace
}

// Pid returns the process id.
func (p *Proc) Pid() int {
	return p.pid
}

// Descriptors returns the number of bound descriptors.
func (p *Proc) Descriptors() int {
	return p.fdt.Count()
}

// closeBinding releases the storage reference of a binding that has been
// removed from the descriptor table. Only the last binding waits for
// transfers still running on the entry.
func (p *Proc) closeBinding(e *openfiletable.Entry, last bool) error {
	if !last {
		return e.Vnode().Close()
	}
	l := e.Lock()
	err := e.Vnode().Close()
	l.Unlock()
	p.k.closeEntry(e)
	return err
}

// Exit closes every descriptor. The first storage error is returned.
func (p *Proc) Exit() error {
	var firstErr error
	rel := p.fdt.Destroy()
	for _, r := range rel {
		if err := p.closeBinding(r.Entry, r.Last); err != nil {
			tlog.Warn.Printf("kern: pid %d exit: closing fd %d: %v", p.pid, r.Fd, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	tlog.Debug.Printf("kern: pid %d exited, released %d descriptors", p.pid, len(rel))
	return firstErr
}
