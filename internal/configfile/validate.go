package configfile

import (
	"fmt"
	"os"
)

// Validate that the combination of settings makes sense and is supported
func (cf *ConfFile) Validate() error {
	if cf.Version != CurrentVersion {
		return fmt.Errorf("Unsupported config format %d", cf.Version)
	}
	// Descriptors 0, 1 and 2 must fit in both tables
	if cf.OpenMax < 3 {
		return fmt.Errorf("OpenMax=%d, must be at least 3", cf.OpenMax)
	}
	if cf.SystemOpenMax < 3 {
		return fmt.Errorf("SystemOpenMax=%d, must be at least 3", cf.SystemOpenMax)
	}
	if cf.MaxIO <= 0 {
		return fmt.Errorf("MaxIO=%d, must be positive", cf.MaxIO)
	}
	if cf.Console == "" {
		return fmt.Errorf("Console path is empty")
	}
	switch cf.Storage {
	case StorageMem:
		if cf.Root != "" {
			return fmt.Errorf("Root=%q is only used by the %q storage", cf.Root, StorageHost)
		}
	case StorageHost:
		if cf.Root == "" {
			return fmt.Errorf("%q storage needs a Root directory", StorageHost)
		}
		fi, err := os.Stat(cf.Root)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return fmt.Errorf("Root %q is not a directory", cf.Root)
		}
	default:
		return fmt.Errorf("Unknown storage %q", cf.Storage)
	}
	return nil
}
