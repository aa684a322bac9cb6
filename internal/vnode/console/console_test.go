package console

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	d := New(strings.NewReader("typed"), &out)
	v, err := d.Open("", unix.O_RDONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.IsSeekable() {
		t.Error("console must not be seekable")
	}
	buf := make([]byte, 10)
	n, err := v.ReadAt(buf, 12345)
	if err != nil || string(buf[:n]) != "typed" {
		t.Errorf("n=%d err=%v data=%q", n, err, buf[:n])
	}
	// Input exhausted: end of file, not an error
	n, err = v.ReadAt(buf, 0)
	if n != 0 || err != nil {
		t.Errorf("n=%d err=%v", n, err)
	}
	v.WriteAt([]byte("hello\n"), 999)
	if out.String() != "hello\n" {
		t.Errorf("console output %q", out.String())
	}
	if d.Refs() != 1 {
		t.Errorf("want 1 reference, have %d", d.Refs())
	}
	v.Close()
	if err := v.Close(); err != unix.EBADF {
		t.Errorf("want EBADF, have %v", err)
	}
}

func TestNoOutput(t *testing.T) {
	d := New(nil, nil)
	if _, err := d.WriteAt([]byte("x"), 0); err != unix.EIO {
		t.Errorf("want EIO, have %v", err)
	}
}
