package main

import (
	"fmt"

	"github.com/integrii/flaggy"

	"github.com/kfio/kfio/internal/tlog"
)

const tUsage = "" +
	"Usage: " + tlog.ProgramName + " -init FILE\n" +
	"  or   " + tlog.ProgramName + " [OPTIONS] -info|-selftest|-stress N|-ctlsock PATH\n"

// helpShort is what gets displayed on syntax error or without an operation.
func helpShort() {
	printVersion()
	fmt.Printf("\n")
	fmt.Printf(tUsage)
	fmt.Printf(`
Common Options (use -hh to show all):
  -config            Custom path to config file
  -ctlsock           Serve the control socket at location
  -d, -debug         Log every system call
  -h, -help          This short help text
  -hh                Long help text with all options
  -info              Print the effective configuration
  -init              Write a default config file
  -openmax           Descriptors per process
  -q, -quiet         Silence informational messages
  -root              Host directory to use as storage
  -selftest          Run the file tester
  -storage           mem or host
  -stress            Run N concurrent workers against shared descriptors
  -version           Print version information
  --                 Stop option parsing
`)
}

// helpLong gets only displayed on "-hh"
func helpLong(p *flaggy.Parser) {
	printVersion()
	fmt.Printf("\n")
	fmt.Printf(tUsage)
	fmt.Printf(`
Notes: All options can equivalently use "-" (single dash) or "--" (double dash).
       A standalone "--" stops option parsing.
`)
	fmt.Printf("\n")
	p.ShowHelp()
}
