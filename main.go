package main

import (
	"log/syslog"
	"os"
	"runtime"

	"github.com/kfio/kfio/internal/configfile"
	"github.com/kfio/kfio/internal/exitcodes"
	"github.com/kfio/kfio/internal/kern"
	"github.com/kfio/kfio/internal/tlog"
	"github.com/kfio/kfio/internal/vnode/console"
)

func main() {
	args, err := parseCliOpts(os.Args)
	if err != nil {
		tlog.Fatal.Printf("Invalid command line: %s: %v. Try '%s -h'.", prettyArgs(), err, tlog.ProgramName)
		os.Exit(exitcodes.Usage)
	}
	if args.debug {
		tlog.Debug.Enabled = true
	}
	if args.quiet {
		tlog.Info.Enabled = false
	}
	if args.wpanic {
		tlog.Warn.Wpanic = true
		tlog.Debug.Printf("Panicing on warnings")
	}
	if args.syslog {
		tlog.Debug.SwitchToSyslog(syslog.LOG_USER | syslog.LOG_DEBUG)
		tlog.Info.SwitchToSyslog(syslog.LOG_USER | syslog.LOG_INFO)
		tlog.Warn.SwitchToSyslog(syslog.LOG_USER | syslog.LOG_WARNING)
		tlog.Fatal.SwitchToSyslog(syslog.LOG_USER | syslog.LOG_CRIT)
	}
	// "-version"
	if args.version {
		printVersion()
		os.Exit(0)
	}
	// "-hh"
	if args.hh {
		var dummy argContainer
		helpLong(newParser(&dummy))
		os.Exit(0)
	}
	// "-init"
	if args.init != "" {
		if err := initConf(&args); err != nil {
			tlog.Fatal.Println(err)
			exitcodes.Exit(err)
		}
		os.Exit(0)
	}
	if countOpFlags(&args) == 0 {
		helpShort()
		os.Exit(exitcodes.Usage)
	}
	cf, err := loadConfig(&args)
	if err != nil {
		tlog.Fatal.Println(err)
		exitcodes.Exit(err)
	}
	tlog.Debug.Printf("config: %s", tlog.JSONDump(cf))
	// "-info"
	if args.info {
		info(cf)
		os.Exit(0)
	}
	if err := run(&args, cf); err != nil {
		tlog.Fatal.Println(err)
		exitcodes.Exit(err)
	}
}

// run boots the kernel and executes the requested operation.
func run(args *argContainer, cf *configfile.ConfFile) error {
	for _, prof := range []struct {
		arg   string
		setup func(string) (func(), error)
	}{
		{args.cpuprofile, setupCpuprofile},
		{args.memprofile, setupMemprofile},
		{args.trace, setupTrace},
	} {
		if prof.arg == "" {
			continue
		}
		stop, err := prof.setup(prof.arg)
		if err != nil {
			return err
		}
		defer stop()
	}
	if args.stress > 0 {
		runtime.GOMAXPROCS(args.stress)
	}

	con, err := console.Host()
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.Bootstrap)
	}
	storage, baseDev, err := newStorage(cf, con)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.Bootstrap)
	}
	k, err := kern.Boot(kern.Config{
		OpenMax:       cf.OpenMax,
		SystemOpenMax: cf.SystemOpenMax,
		MaxIO:         cf.MaxIO,
		Console:       cf.Console,
	}, storage)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.Bootstrap)
	}
	defer func() {
		if err := k.Shutdown(); err != nil {
			tlog.Warn.Printf("shutdown: %v", err)
		}
	}()

	switch {
	case args.selftest:
		return selfTest(k)
	case args.stress > 0:
		return stress(k, args.stress, args.stressIters)
	case args.ctlsock != "":
		return serve(k, args.ctlsock, baseDev)
	}
	return nil
}
