package main

import (
	"fmt"
	"os"

	"github.com/kfio/kfio/internal/configfile"
	"github.com/kfio/kfio/internal/exitcodes"
	"github.com/kfio/kfio/internal/tlog"
)

// initConf handles "kfio -init FILE". Limits and storage options given on
// the command line are written into the new file.
func initConf(args *argContainer) error {
	if _, err := os.Stat(args.init); err == nil {
		return exitcodes.NewErr(fmt.Sprintf("Config file %q already exists", args.init), exitcodes.Init)
	}
	cf := configfile.Default()
	cf.Creator = tlog.ProgramName + " " + GitVersion
	cf.SetFilename(args.init)
	applyArgs(args, cf)
	if err := cf.Validate(); err != nil {
		return exitcodes.Wrap(err, exitcodes.Init)
	}
	if err := cf.WriteFile(); err != nil {
		return exitcodes.Wrap(err, exitcodes.WriteConf)
	}
	tlog.Info.Printf(tlog.ColorGreen+"The config file %q has been created."+tlog.ColorReset, args.init)
	return nil
}
