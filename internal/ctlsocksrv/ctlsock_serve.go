// Package ctlsocksrv implements the control socket interface that can be
// activated by passing "-ctlsock" on the command line.
//
// Each connection is served by a process of its own. Requests are JSON
// objects read one after another from the stream, each answered by one JSON
// response.
package ctlsocksrv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/kfio/kfio/ctlsock"
	"github.com/kfio/kfio/internal/inomap"
	"github.com/kfio/kfio/internal/kern"
	"github.com/kfio/kfio/internal/kerr"
	"github.com/kfio/kfio/internal/tlog"
	"github.com/kfio/kfio/internal/usermem"
)

type ctlSockHandler struct {
	k      *kern.Kernel
	socket net.Listener
	inums  *inomap.InumMap

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// Serve serves incoming connections on "sock" until it is closed, then
// closes the remaining connections and waits for their processes to exit.
// This call blocks so you probably want to run it in a new goroutine.
//
// Inode numbers in "files" responses are passed through for "baseDev" and
// remapped for everything else.
func Serve(sock net.Listener, k *kern.Kernel, baseDev uint64) error {
	handler := ctlSockHandler{
		k:      k,
		socket: sock,
		inums:  inomap.NewInumMap(baseDev),
		conns:  make(map[net.Conn]struct{}),
	}
	return handler.acceptLoop()
}

func (ch *ctlSockHandler) acceptLoop() error {
	var g errgroup.Group
	for {
		conn, err := ch.socket.Accept()
		if err != nil {
			// This can trigger on program exit with "use of closed network connection".
			// Special-casing this is hard due to https://github.com/golang/go/issues/4373
			// so just don't use tlog.Warn to not cause panics in the tests.
			tlog.Info.Printf("ctlsock: Accept error: %v", err)
			break
		}
		ch.connsMu.Lock()
		ch.conns[conn] = struct{}{}
		ch.connsMu.Unlock()
		g.Go(func() error {
			defer func() {
				ch.connsMu.Lock()
				delete(ch.conns, conn)
				ch.connsMu.Unlock()
			}()
			return ch.handleConnection(conn)
		})
	}
	ch.connsMu.Lock()
	for c := range ch.conns {
		c.Close()
	}
	ch.connsMu.Unlock()
	return g.Wait()
}

// handleConnection reads and parses JSON requests from "conn" and runs them
// in a fresh process. The process exits when the connection goes away.
func (ch *ctlSockHandler) handleConnection(conn net.Conn) error {
	defer conn.Close()
	mem := usermem.NewFlat(ch.k.Config().MaxIO)
	p, err := ch.k.NewProc(mem)
	if err != nil {
		tlog.Warn.Printf("ctlsock: creating process: %v", err)
		return err
	}
	defer func() {
		if err := p.Exit(); err != nil {
			tlog.Warn.Printf("ctlsock: pid %d exit: %v", p.Pid(), err)
		}
	}()
	tlog.Debug.Printf("ctlsock: connection served by pid %d", p.Pid())

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var in ctlsock.RequestStruct
		err := dec.Decode(&in)
		if err == io.EOF {
			return nil
		} else if errors.Is(err, net.ErrClosed) {
			return nil
		} else if _, ok := err.(*json.SyntaxError); ok {
			tlog.Warn.Printf("ctlsock: JSON Unmarshal error: %#v", err)
			sendResponse(enc, &ctlsock.ResponseStruct{}, pkgerrors.Wrap(kerr.InvalidArgument, "JSON Unmarshal error: "+err.Error()))
			// The decoder cannot resynchronize on a byte stream
			return nil
		} else if err != nil {
			tlog.Info.Printf("ctlsock: Read error: %v", err)
			return nil
		}
		out, err := ch.handleRequest(p, mem, &in)
		if !sendResponse(enc, out, err) {
			return nil
		}
	}
}

// handleRequest runs one already-unmarshaled JSON request in process "p"
func (ch *ctlSockHandler) handleRequest(p *kern.Proc, mem *usermem.Flat, in *ctlsock.RequestStruct) (*ctlsock.ResponseStruct, error) {
	out := &ctlsock.ResponseStruct{}
	switch in.Op {
	case ctlsock.OpOpen:
		clean := SanitizePath(in.Path)
		if clean != in.Path {
			out.WarnText = fmt.Sprintf("Non-canonical input path '%s' has been interpreted as '%s'.", in.Path, clean)
		}
		if clean == "" {
			return out, pkgerrors.Wrap(kerr.InvalidArgument, "Empty input after canonicalization")
		}
		fd, err := p.Open(clean, in.Flags, in.Mode)
		out.Result = int64(fd)
		return out, err
	case ctlsock.OpClose:
		return out, p.Close(in.Fd)
	case ctlsock.OpRead:
		n, err := p.Read(in.Fd, mem.Base(), in.Length)
		if err != nil {
			return out, err
		}
		out.Result = int64(n)
		out.Data, err = mem.Load(mem.Base(), n)
		return out, err
	case ctlsock.OpWrite:
		if err := mem.Store(mem.Base(), in.Data); err != nil {
			// Payload does not fit the address space
			return out, kerr.OutOfMemory
		}
		n, err := p.Write(in.Fd, mem.Base(), len(in.Data))
		out.Result = int64(n)
		return out, err
	case ctlsock.OpLseek:
		off, err := p.Lseek(in.Fd, in.Offset, in.Whence)
		out.Result = off
		return out, err
	case ctlsock.OpDup2:
		fd, err := p.Dup2(in.Fd, in.NewFd)
		out.Result = int64(fd)
		return out, err
	case ctlsock.OpFiles:
		for _, info := range ch.k.Files().Snapshot() {
			out.Files = append(out.Files, ctlsock.FileStruct{
				Slot:     info.Slot,
				Ino:      ch.inums.Translate(info.Ident),
				AccMode:  info.AccMode,
				Offset:   info.Offset,
				RefCount: info.RefCount,
				Pinned:   info.Pinned,
			})
		}
		out.Result = int64(len(out.Files))
		return out, nil
	case "":
		return out, pkgerrors.Wrap(kerr.InvalidArgument, "Empty input")
	default:
		return out, pkgerrors.Wrapf(kerr.InvalidArgument, "Unknown operation %q", in.Op)
	}
}

// sendResponse sends a JSON response message. Returns false if the
// connection is unusable.
func sendResponse(enc *json.Encoder, msg *ctlsock.ResponseStruct, err error) bool {
	if err != nil {
		msg.Result = -1
		msg.Data = nil
		msg.ErrText = err.Error()
		msg.ErrNo = int32(kerr.ToErrno(err))
	}
	// Encode adds a newline at the end for the convenience of the user.
	if err := enc.Encode(msg); err != nil {
		tlog.Warn.Printf("ctlsock: Write failed: %v", err)
		return false
	}
	return true
}
