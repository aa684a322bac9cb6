// Package exitcodes contains all well-defined exit codes that kfio
// can return.
package exitcodes

import (
	"errors"
	"os"
)

const (
	// Usage - usage error like wrong cli syntax, wrong number of parameters.
	Usage = 1
	// 2 is reserved because it is used by Go panic

	// Init is an error while writing a fresh config file with -init
	Init = 7
	// LoadConf is an error while loading kfio.conf
	LoadConf = 8
	// Bootstrap means the open file table could not be set up, usually
	// because the console device failed to open.
	Bootstrap = 9
	// Other error - please inspect the message
	Other = 11
	// SigInt means we got SIGINT
	SigInt = 15
	// SelfTest means the built-in file tester found a mismatch
	SelfTest = 16
	// Stress means a -stress worker observed a lost or torn transfer
	Stress = 17
	// CtlSock - the control socket file could not be created.
	CtlSock = 20
	// OpenConf - there was an error opening the kfio.conf file for reading
	OpenConf = 23
	// WriteConf - could not write the kfio.conf
	WriteConf = 24
	// Profiler - error occurred when trying to write cpu or memory profile
	Profiler = 25
)

// Err wraps an error with an associated numeric exit code
type Err struct {
	error
	code int
}

// NewErr returns an error containing "msg" and the exit code "code".
func NewErr(msg string, code int) Err {
	return Err{
		error: errors.New(msg),
		code:  code,
	}
}

// Wrap attaches the exit code "code" to an existing error.
func Wrap(err error, code int) Err {
	return Err{
		error: err,
		code:  code,
	}
}

// Code returns the exit code carried by "err", or Other.
func Code(err error) int {
	var e Err
	if errors.As(err, &e) {
		return e.code
	}
	return Other
}

// Exit extracts the numeric exit code from "err" (if available) and exits the
// application.
func Exit(err error) {
	os.Exit(Code(err))
}
