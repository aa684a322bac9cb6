// Package usermem models the user side of a system call: the address space
// that read copies out to and write copies in from.
package usermem

import (
	"fmt"
	"sync"

	"github.com/kfio/kfio/internal/kerr"
)

// Addr is a user virtual address.
type Addr uintptr

// AddressSpace copies between kernel buffers and user memory.
type AddressSpace interface {
	// CopyIn fills "dst" from user memory starting at "src".
	CopyIn(src Addr, dst []byte) error
	// CopyOut copies "src" to user memory starting at "dst".
	CopyOut(dst Addr, src []byte) error
}

// GuardSize is the unmapped region at the bottom of a Flat address space.
// Addresses below it fault, so a NULL buffer pointer is caught.
const GuardSize = 4096

// Flat is a contiguous address space of fixed size.
type Flat struct {
	mu  sync.RWMutex
	mem []byte
}

var _ AddressSpace = &Flat{}

// NewFlat returns an address space with "size" usable bytes starting at
// GuardSize.
func NewFlat(size int) *Flat {
	return &Flat{mem: make([]byte, size)}
}

// Base returns the lowest valid address.
func (f *Flat) Base() Addr {
	return GuardSize
}

// Size returns the number of usable bytes.
func (f *Flat) Size() int {
	return len(f.mem)
}

func (f *Flat) span(a Addr, n int) (int, error) {
	if a < GuardSize {
		return 0, kerr.Fault
	}
	off := uint64(a - GuardSize)
	if off > uint64(len(f.mem)) || uint64(n) > uint64(len(f.mem))-off {
		return 0, kerr.Fault
	}
	return int(off), nil
}

// CopyIn implements AddressSpace.
func (f *Flat) CopyIn(src Addr, dst []byte) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	off, err := f.span(src, len(dst))
	if err != nil {
		return err
	}
	copy(dst, f.mem[off:])
	return nil
}

// CopyOut implements AddressSpace.
func (f *Flat) CopyOut(dst Addr, src []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	off, err := f.span(dst, len(src))
	if err != nil {
		return err
	}
	copy(f.mem[off:], src)
	return nil
}

// Store places "data" at "a". It is CopyOut for callers that are not the
// kernel, like test harnesses preparing a write buffer.
func (f *Flat) Store(a Addr, data []byte) error {
	return f.CopyOut(a, data)
}

// Load returns a copy of "n" bytes at "a".
func (f *Flat) Load(a Addr, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := f.CopyIn(a, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (f *Flat) String() string {
	return fmt.Sprintf("usermem.Flat[%#x-%#x]", GuardSize, GuardSize+len(f.mem))
}
