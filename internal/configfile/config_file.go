// Package configfile reads and writes kfio.conf.
package configfile

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"

	"github.com/kfio/kfio/internal/tlog"
)

const (
	// ConfDefaultName is the default configuration file name.
	ConfDefaultName = "kfio.conf"
	// CurrentVersion is the config format this version writes and accepts.
	CurrentVersion = 1
)

// Storage backends.
const (
	StorageMem  = "mem"
	StorageHost = "host"
)

// ConfFile is the content of a config file.
type ConfFile struct {
	// Creator is the kfio version string. Only informational.
	Creator string
	// Version is the config format version.
	Version uint16
	// OpenMax is the size of the per-process descriptor table.
	OpenMax int
	// SystemOpenMax is the size of the system-wide open file table.
	SystemOpenMax int
	// MaxIO is the largest single read or write in bytes.
	MaxIO int
	// Console is the device path descriptors 0, 1 and 2 are opened from.
	Console string
	// Storage selects the backend for plain paths: "mem" or "host".
	Storage string
	// Root is the host directory for the "host" backend.
	Root string `json:",omitempty"`
	// filename is the name of the config file. Not exported to JSON.
	filename string
}

// Default returns the built-in configuration.
func Default() *ConfFile {
	return &ConfFile{
		Version:       CurrentVersion,
		OpenMax:       128,
		SystemOpenMax: 128,
		MaxIO:         1 << 20,
		Console:       "con:",
		Storage:       StorageMem,
	}
}

// Create writes the default configuration to "filename". It fails if the
// file exists.
func Create(filename string, creator string) (*ConfFile, error) {
	cf := Default()
	cf.Creator = creator
	cf.filename = filename
	if _, err := os.Stat(filename); err == nil {
		return nil, errors.Errorf("config file %q already exists", filename)
	}
	return cf, cf.WriteFile()
}

// Load reads and validates the config file "filename". Fields missing from
// the file keep their default values.
func Load(filename string) (*ConfFile, error) {
	cf := Default()
	cf.filename = filename
	js, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(js, cf)
	if err != nil {
		tlog.Warn.Printf("Failed to unmarshal config file")
		return nil, errors.Wrapf(err, "parsing %q", filename)
	}
	if err := cf.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validating %q", filename)
	}
	return cf, nil
}

// Filename returns the path the config was loaded from or is written to.
func (cf *ConfFile) Filename() string {
	return cf.filename
}

// SetFilename changes where WriteFile writes to.
func (cf *ConfFile) SetFilename(filename string) {
	cf.filename = filename
}

// WriteFile - write out config in JSON format to file "filename.tmp"
// then rename over "filename".
// This way a config change atomically replaces the file.
func (cf *ConfFile) WriteFile() error {
	if err := cf.Validate(); err != nil {
		return err
	}
	tmp := cf.filename + ".tmp"
	fd, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	js, err := json.MarshalIndent(cf, "", "\t")
	if err != nil {
		fd.Close()
		return err
	}
	// For convenience for the user, add a newline at the end.
	js = append(js, '\n')
	_, err = fd.Write(js)
	if err != nil {
		fd.Close()
		return err
	}
	err = fd.Sync()
	if err != nil {
		fd.Close()
		return err
	}
	err = fd.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp, cf.filename)
}
