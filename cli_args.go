package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/integrii/flaggy"

	"github.com/kfio/kfio/internal/configfile"
	"github.com/kfio/kfio/internal/exitcodes"
	"github.com/kfio/kfio/internal/tlog"
)

// argContainer stores the parsed CLI options and arguments
type argContainer struct {
	debug, quiet, wpanic, syslog, version, hh, info, selftest bool
	config, init, storage, root, console, ctlsock,
	cpuprofile, memprofile, trace string
	// Limits. 0 means "take the value from the config file".
	openmax, systemopenmax, maxio int
	// -stress workers and iterations per worker
	stress, stressIters int
}

// prefixOArgs transform options passed via "-o foo,bar" into regular options
// like "-foo -bar" and prefixes them to the command line.
// Testcases in TestPrefixOArgs().
func prefixOArgs(osArgs []string) ([]string, error) {
	// Need at least 3, example: kfio -o    foo,bar
	//                           ^ 0  ^ 1   ^ 2
	if len(osArgs) < 3 {
		return osArgs, nil
	}
	// Passing "--" disables "-o" parsing. Ignore element 0 (program name).
	for _, v := range osArgs[1:] {
		if v == "--" {
			return osArgs, nil
		}
	}
	// Find and extract "-o foo,bar"
	var otherArgs, oOpts []string
	for i := 1; i < len(osArgs); i++ {
		if osArgs[i] == "-o" {
			// Last argument?
			if i+1 >= len(osArgs) {
				return nil, fmt.Errorf("The \"-o\" option requires an argument")
			}
			oOpts = append(oOpts, strings.Split(osArgs[i+1], ",")...)
			// Skip over the arguments to "-o"
			i++
		} else if strings.HasPrefix(osArgs[i], "-o=") {
			oOpts = append(oOpts, strings.Split(osArgs[i][3:], ",")...)
		} else {
			otherArgs = append(otherArgs, osArgs[i])
		}
	}
	// Start with program name
	newArgs := []string{osArgs[0]}
	// Add options from "-o"
	for _, o := range oOpts {
		if o == "" {
			continue
		}
		if o == "o" || o == "-o" {
			return nil, fmt.Errorf("You can't pass \"-o\" to \"-o\"")
		}
		newArgs = append(newArgs, "-"+o)
	}
	// Add other arguments
	newArgs = append(newArgs, otherArgs...)
	return newArgs, nil
}

// newParser declares all options on a fresh flaggy parser that fills "args".
func newParser(args *argContainer) *flaggy.Parser {
	p := flaggy.NewParser(tlog.ProgramName)
	p.ShowVersionWithVersionFlag = false

	p.Bool(&args.debug, "d", "debug", "Enable debug output")
	p.Bool(&args.quiet, "q", "quiet", "Quiet - silence informational messages")
	p.Bool(&args.wpanic, "wpanic", "", "When encountering a warning, panic and exit immediately")
	p.Bool(&args.syslog, "syslog", "", "Send log output to syslog")
	p.Bool(&args.version, "version", "", "Print version and exit")
	p.Bool(&args.hh, "hh", "", "Show this long help text")
	p.Bool(&args.info, "info", "", "Print the effective configuration")
	p.Bool(&args.selftest, "selftest", "", "Run the file tester against the configured storage")

	p.String(&args.config, "config", "", "Use specified config file")
	p.String(&args.init, "init", "", "Write a default config file to the specified path")
	p.String(&args.storage, "storage", "", "Storage backend for plain paths: mem or host")
	p.String(&args.root, "root", "", "Host directory for -storage host")
	p.String(&args.console, "console", "", "Device path of the standard descriptors")
	p.String(&args.ctlsock, "ctlsock", "", "Serve the control socket at specified path")
	p.String(&args.cpuprofile, "cpuprofile", "", "Write cpu profile to specified file")
	p.String(&args.memprofile, "memprofile", "", "Write memory profile to specified file")
	p.String(&args.trace, "trace", "", "Write execution trace to file")

	p.Int(&args.openmax, "openmax", "", "Descriptors per process")
	p.Int(&args.systemopenmax, "systemopenmax", "", "Size of the system-wide open file table")
	p.Int(&args.maxio, "maxio", "", "Largest read or write in bytes")
	p.Int(&args.stress, "stress", "", "Run the stress test with N concurrent workers")
	args.stressIters = 1000
	p.Int(&args.stressIters, "stress-iters", "", "Iterations per -stress worker")

	var dummyString string
	p.String(&dummyString, "o", "", "Options can be also passed as a comma-separated list to -o.")
	return p
}

// parseCliOpts - parse command line options (i.e. arguments that start with "-").
// "osArgs" includes the program name.
func parseCliOpts(osArgs []string) (args argContainer, err error) {
	osArgs, err = prefixOArgs(osArgs)
	if err != nil {
		return args, err
	}
	p := newParser(&args)
	if len(osArgs) > 0 {
		osArgs = osArgs[1:]
	}
	err = p.ParseArgs(osArgs)
	if err != nil {
		return args, err
	}
	if args.debug && args.quiet {
		return args, fmt.Errorf("-d and -q cannot be used at the same time")
	}
	if args.openmax < 0 || args.systemopenmax < 0 || args.maxio < 0 {
		return args, fmt.Errorf("limits cannot be negative")
	}
	if args.stress < 0 || args.stressIters <= 0 {
		return args, fmt.Errorf("-stress and -stress-iters must be positive")
	}
	if countOpFlags(&args) > 1 {
		return args, fmt.Errorf("-init, -info, -selftest, -stress and -ctlsock are mutually exclusive")
	}
	return args, nil
}

// countOpFlags counts the number of operation flags we were passed.
func countOpFlags(args *argContainer) int {
	var count int
	if args.init != "" {
		count++
	}
	if args.info {
		count++
	}
	if args.selftest {
		count++
	}
	if args.stress > 0 {
		count++
	}
	if args.ctlsock != "" {
		count++
	}
	return count
}

// applyArgs overrides config file values with the ones given on the
// command line.
func applyArgs(args *argContainer, cf *configfile.ConfFile) {
	if args.storage != "" {
		cf.Storage = args.storage
	}
	if args.root != "" {
		cf.Root = args.root
		// -root alone implies host storage
		if args.storage == "" {
			cf.Storage = configfile.StorageHost
		}
	}
	if args.console != "" {
		cf.Console = args.console
	}
	if args.openmax > 0 {
		cf.OpenMax = args.openmax
	}
	if args.systemopenmax > 0 {
		cf.SystemOpenMax = args.systemopenmax
	}
	if args.maxio > 0 {
		cf.MaxIO = args.maxio
	}
}

// loadConfig returns the config file named by -config, or the defaults,
// with command line overrides applied and validated.
func loadConfig(args *argContainer) (*configfile.ConfFile, error) {
	cf := configfile.Default()
	if args.config != "" {
		var err error
		cf, err = configfile.Load(args.config)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, exitcodes.Wrap(err, exitcodes.OpenConf)
			}
			return nil, exitcodes.Wrap(err, exitcodes.LoadConf)
		}
	}
	applyArgs(args, cf)
	if err := cf.Validate(); err != nil {
		return nil, exitcodes.Wrap(err, exitcodes.Usage)
	}
	return cf, nil
}

// prettyArgs pretty-prints the command-line arguments.
func prettyArgs() string {
	pa := fmt.Sprintf("%v", os.Args)
	// Get rid of "[" and "]"
	pa = pa[1 : len(pa)-1]
	return pa
}
