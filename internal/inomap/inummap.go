package inomap

import (
	"sync"
)

// UINT64_MAX           = 18446744073709551615
const inumTranslateBase = 10000000000000000000

// InumMap translates QIno tuples to unique uint64 inode numbers.
//
// Inode numbers of host objects on "baseDev" are passed through unchanged (as
// long as they are not higher than inumTranslateBase). Everything else,
// including all memfs and console objects, is remapped to the number space
// above 10000000000000000000. Entries can only be added and are never removed.
type InumMap struct {
	sync.Mutex
	baseDev       uint64
	translate     map[QIno]uint64
	translateNext uint64
}

// NewInumMap returns a new InumMap.
func NewInumMap(baseDev uint64) *InumMap {
	return &InumMap{
		baseDev:       baseDev,
		translate:     make(map[QIno]uint64),
		translateNext: inumTranslateBase,
	}
}

// Translate maps the passed-in QIno to a unique inode number.
func (m *InumMap) Translate(in QIno) (out uint64) {
	if in.Tag == TagHost && in.Dev == m.baseDev && in.Ino < inumTranslateBase {
		return in.Ino
	}
	m.Lock()
	defer m.Unlock()
	out = m.translate[in]
	if out != 0 {
		return out
	}
	out = m.translateNext
	m.translate[in] = m.translateNext
	m.translateNext++
	return out
}

// Count returns the number of entries in the translation table.
func (m *InumMap) Count() int {
	m.Lock()
	defer m.Unlock()
	return len(m.translate)
}
