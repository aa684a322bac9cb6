package vnode

import (
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/tlog"
)

// Mux routes device paths of the form "name:rest" to the Storage mounted as
// "name" and all other paths to the default Storage. "con:" opens the
// console when a console is mounted as "con".
type Mux struct {
	mu      sync.RWMutex
	devices map[string]Storage
	root    Storage
}

var _ Storage = &Mux{}

// NewMux returns a Mux that sends undecorated paths to "root". "root" may
// be nil, in which case only device paths can be opened.
func NewMux(root Storage) *Mux {
	return &Mux{
		devices: make(map[string]Storage),
		root:    root,
	}
}

// Mount makes "s" reachable under "name:".
func (m *Mux) Mount(name string, s Storage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[name] = s
}

// Open implements Storage.
func (m *Mux) Open(path string, flags int, mode uint32) (Vnode, error) {
	if path == "" {
		return nil, unix.ENOENT
	}
	m.mu.RLock()
	s := m.root
	rest := path
	if i := strings.IndexByte(path, ':'); i > 0 {
		dev, ok := m.devices[path[:i]]
		if !ok {
			m.mu.RUnlock()
			tlog.Debug.Printf("vnode: no device %q for path %q", path[:i], path)
			return nil, unix.ENODEV
		}
		s = dev
		rest = path[i+1:]
	}
	m.mu.RUnlock()
	if s == nil {
		return nil, unix.ENOENT
	}
	return s.Open(rest, flags, mode)
}
