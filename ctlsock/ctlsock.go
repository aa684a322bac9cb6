// Package ctlsock is a Go library that can be used to drive the kfio
// control socket interface. This interface can be activated by passing
// `-ctlsock /tmp/my.sock` to kfio on the command line.
//
// Every connection is a process of its own: descriptors returned by Open
// are valid on the connection that opened them, and are closed when the
// connection goes away.
package ctlsock

import (
	"encoding/json"
	"fmt"
	"net"
	"syscall"
	"time"
)

func (r *ResponseStruct) Error() string {
	return fmt.Sprintf("errno %d: %s", r.ErrNo, r.ErrText)
}

// Errno returns the error number of a failed request.
func (r *ResponseStruct) Errno() syscall.Errno {
	if r.ErrNo < 0 {
		return syscall.EIO
	}
	return syscall.Errno(r.ErrNo)
}

// CtlSock encapsulates a control socket
type CtlSock struct {
	Conn net.Conn
	// Timeout bounds each Query. Defaults to one second.
	Timeout time.Duration
	enc     *json.Encoder
	dec     *json.Decoder
}

// New opens the socket at `socketPath` and stores it in a `CtlSock` object.
func New(socketPath string) (*CtlSock, error) {
	conn, err := net.DialTimeout("unix", socketPath, 1*time.Second)
	if err != nil {
		return nil, err
	}
	return &CtlSock{
		Conn:    conn,
		Timeout: time.Second,
		enc:     json.NewEncoder(conn),
		dec:     json.NewDecoder(conn),
	}, nil
}

// Query sends a request to the control socket returns the response.
// A response carrying an error number is returned as the error.
func (c *CtlSock) Query(req *RequestStruct) (*ResponseStruct, error) {
	c.Conn.SetDeadline(time.Now().Add(c.Timeout))
	if err := c.enc.Encode(req); err != nil {
		return nil, err
	}
	var resp ResponseStruct
	if err := c.dec.Decode(&resp); err != nil {
		return nil, err
	}
	if resp.ErrNo != 0 {
		return nil, &resp
	}
	return &resp, nil
}

// Open opens "path" and returns the descriptor.
func (c *CtlSock) Open(path string, flags int, mode uint32) (int, error) {
	resp, err := c.Query(&RequestStruct{Op: OpOpen, Path: path, Flags: flags, Mode: mode})
	if err != nil {
		return -1, err
	}
	return int(resp.Result), nil
}

// CloseFd closes descriptor "fd". It is not named Close because Close
// closes the socket.
func (c *CtlSock) CloseFd(fd int) error {
	_, err := c.Query(&RequestStruct{Op: OpClose, Fd: fd})
	return err
}

// Read reads up to "n" bytes from "fd".
func (c *CtlSock) Read(fd int, n int) ([]byte, error) {
	resp, err := c.Query(&RequestStruct{Op: OpRead, Fd: fd, Length: n})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Write writes "data" to "fd" and returns the number of bytes written.
func (c *CtlSock) Write(fd int, data []byte) (int, error) {
	resp, err := c.Query(&RequestStruct{Op: OpWrite, Fd: fd, Data: data})
	if err != nil {
		return -1, err
	}
	return int(resp.Result), nil
}

// Lseek moves the file position of "fd".
func (c *CtlSock) Lseek(fd int, offset int64, whence int) (int64, error) {
	resp, err := c.Query(&RequestStruct{Op: OpLseek, Fd: fd, Offset: offset, Whence: whence})
	if err != nil {
		return -1, err
	}
	return resp.Result, nil
}

// Dup2 makes "newfd" refer to the open file behind "oldfd".
func (c *CtlSock) Dup2(oldfd, newfd int) (int, error) {
	resp, err := c.Query(&RequestStruct{Op: OpDup2, Fd: oldfd, NewFd: newfd})
	if err != nil {
		return -1, err
	}
	return int(resp.Result), nil
}

// Files lists the system-wide open file table.
func (c *CtlSock) Files() ([]FileStruct, error) {
	resp, err := c.Query(&RequestStruct{Op: OpFiles})
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// Close closes the socket
func (c *CtlSock) Close() {
	c.Conn.Close()
}
