package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/kfio/kfio/internal/ctlsocksrv"
	"github.com/kfio/kfio/internal/exitcodes"
	"github.com/kfio/kfio/internal/kern"
	"github.com/kfio/kfio/internal/tlog"
)

// serve runs the control socket at "path" until SIGINT or SIGTERM.
func serve(k *kern.Kernel, path string, baseDev uint64) error {
	sock, err := ctlsocksrv.Listen(path)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.CtlSock)
	}
	handleSigint(func() {
		sock.Close()
	})
	tlog.Info.Printf("Serving control socket at %q", path)
	err = ctlsocksrv.Serve(sock, k, baseDev)
	os.Remove(path)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.CtlSock)
	}
	return nil
}

// handleSigint calls "stop" on the first SIGINT or SIGTERM. A second
// signal exits immediately.
func handleSigint(stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	signal.Notify(ch, syscall.SIGTERM)
	go func() {
		sig := <-ch
		tlog.Info.Printf("Got %v, shutting down", sig)
		stop()
		<-ch
		os.Exit(exitcodes.SigInt)
	}()
}
