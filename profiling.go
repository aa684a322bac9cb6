package main

import (
	"os"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/kfio/kfio/internal/exitcodes"
	"github.com/kfio/kfio/internal/tlog"
)

// setupCpuprofile is called to handle a non-empty "-cpuprofile" cli argument
func setupCpuprofile(cpuprofileArg string) (func(), error) {
	tlog.Info.Printf("Writing CPU profile to %s", cpuprofileArg)
	f, err := os.Create(cpuprofileArg)
	if err != nil {
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	err = pprof.StartCPUProfile(f)
	if err != nil {
		f.Close()
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

// setupMemprofile is called to handle a non-empty "-memprofile" cli argument
func setupMemprofile(memprofileArg string) (func(), error) {
	tlog.Info.Printf("Will write memory profile to %q", memprofileArg)
	f, err := os.Create(memprofileArg)
	if err != nil {
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	done := make(chan struct{})
	// Write the memory profile to disk every 60 seconds to get the in-use
	// memory stats of long-running -ctlsock servers.
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			if _, err := f.Seek(0, 0); err != nil {
				tlog.Warn.Printf("memprofile: Seek failed: %v", err)
				return
			}
			if err := f.Truncate(0); err != nil {
				tlog.Warn.Printf("memprofile: Truncate failed: %v", err)
				return
			}
			if err := pprof.WriteHeapProfile(f); err != nil {
				tlog.Warn.Printf("memprofile: periodic WriteHeapProfile failed: %v", err)
				return
			}
			tlog.Info.Printf("memprofile: periodic write to %q succeeded", memprofileArg)
		}
	}()
	// Final write on exit.
	return func() {
		close(done)
		f.Seek(0, 0)
		f.Truncate(0)
		if err := pprof.WriteHeapProfile(f); err != nil {
			tlog.Warn.Printf("memprofile: on-exit WriteHeapProfile failed: %v", err)
		}
		f.Close()
	}, nil
}

// setupTrace is called to handle a non-empty "-trace" cli argument
func setupTrace(traceArg string) (func(), error) {
	tlog.Info.Printf("Writing execution trace to %s", traceArg)
	f, err := os.Create(traceArg)
	if err != nil {
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	err = trace.Start(f)
	if err != nil {
		f.Close()
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	return func() {
		trace.Stop()
		f.Close()
	}, nil
}
