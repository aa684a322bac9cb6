package main

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/configfile"
	"github.com/kfio/kfio/internal/vnode"
	"github.com/kfio/kfio/internal/vnode/console"
	"github.com/kfio/kfio/internal/vnode/hostfs"
	"github.com/kfio/kfio/internal/vnode/memfs"
)

// consoleDevice is the device name the console is mounted under.
const consoleDevice = "con"

// newStorage builds the storage namespace described by "cf": the console
// device plus the configured backend for plain paths. "baseDev" is the
// host device inode numbers are reported unchanged for.
func newStorage(cf *configfile.ConfFile, con *console.Device) (s *vnode.Mux, baseDev uint64, err error) {
	var root vnode.Storage
	switch cf.Storage {
	case configfile.StorageMem:
		root = memfs.New()
	case configfile.StorageHost:
		fs, err := hostfs.New(cf.Root)
		if err != nil {
			return nil, 0, err
		}
		var st unix.Stat_t
		if err := unix.Stat(cf.Root, &st); err != nil {
			return nil, 0, errors.Wrapf(err, "stat %q", cf.Root)
		}
		baseDev = uint64(st.Dev)
		root = fs
	default:
		return nil, 0, errors.Errorf("unknown storage %q", cf.Storage)
	}
	s = vnode.NewMux(root)
	s.Mount(consoleDevice, con)
	return s, baseDev, nil
}
