package inomap

import (
	"fmt"
	"syscall"
)

// Tags separate the identity spaces of the storage backends. Two backends can
// hand out the same (Dev, Ino) pair without the open file table mistaking
// them for one object.
const (
	// TagHost is used for objects that live on the host filesystem.
	TagHost uint8 = iota
	// TagMem is used for objects of the in-memory filesystem.
	TagMem
	// TagConsole is used for the console device.
	TagConsole
)

type namespaceData struct {
	// Stat_t.Dev is uint64 on 32- and 64-bit Linux
	Dev uint64
	// Tag acts like an extension of the Dev field.
	Tag uint8
}

// QIno = Qualified Inode number.
// Uniquely identifies a storage object through the
// (device number, tag, inode number) tuple.
type QIno struct {
	namespaceData
	// Stat_t.Ino is uint64 on 32- and 64-bit Linux
	Ino uint64
}

// NewQIno returns a filled QIno struct
func NewQIno(dev uint64, tag uint8, ino uint64) QIno {
	return QIno{
		namespaceData: namespaceData{
			Dev: dev,
			Tag: tag,
		},
		Ino: ino,
	}
}

// QInoFromStat fills a new QIno struct with the passed Stat_t info.
func QInoFromStat(st *syscall.Stat_t) QIno {
	// There are some architectures that use 32-bit values here
	// (darwin, freebsd-32, maybe others). Add an explicit cast to make
	// this function work everywhere.
	return NewQIno(uint64(st.Dev), TagHost, uint64(st.Ino))
}

func (q QIno) String() string {
	return fmt.Sprintf("%d:%d:%d", q.Tag, q.Dev, q.Ino)
}
