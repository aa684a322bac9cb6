package memfs

import (
	"bytes"
	"testing"

	"golang.org/x/sys/unix"
)

func TestOpenFlags(t *testing.T) {
	fs := New()
	if _, err := fs.Open("a", unix.O_RDONLY, 0); err != unix.ENOENT {
		t.Errorf("want ENOENT, have %v", err)
	}
	v1, err := fs.Open("a", unix.O_RDWR|unix.O_CREAT, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Open("a", unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0644); err != unix.EEXIST {
		t.Errorf("want EEXIST, have %v", err)
	}
	v2, err := fs.Open("a", unix.O_RDONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 {
		t.Error("two opens of the same name returned different vnodes")
	}
	if v1.Ident() != v2.Ident() {
		t.Error("identity mismatch")
	}
	if c := fs.OpenCount("a"); c != 2 {
		t.Errorf("want 2 open references, have %d", c)
	}
	v1.Close()
	v2.Close()
	if c := fs.OpenCount("a"); c != 0 {
		t.Errorf("want 0 open references, have %d", c)
	}
	if err := v1.Close(); err != unix.EBADF {
		t.Errorf("double close: want EBADF, have %v", err)
	}
}

func TestReadWriteAt(t *testing.T) {
	fs := New()
	v, err := fs.Open("f", unix.O_RDWR|unix.O_CREAT, 0600)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()
	if n, err := v.WriteAt([]byte("hello"), 0); n != 5 || err != nil {
		t.Fatalf("n=%d err=%v", n, err)
	}
	// Writing past the end leaves a zero-filled hole
	if n, err := v.WriteAt([]byte("!"), 8); n != 1 || err != nil {
		t.Fatalf("n=%d err=%v", n, err)
	}
	size, _ := v.Size()
	if size != 9 {
		t.Errorf("want size 9, have %d", size)
	}
	buf := make([]byte, 20)
	n, err := v.ReadAt(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte("hello\x00\x00\x00!")
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("want %q, have %q", want, buf[:n])
	}
	n, err = v.ReadAt(buf, 100)
	if n != 0 || err != nil {
		t.Errorf("read past EOF: n=%d err=%v", n, err)
	}
}

func TestWriteTooLarge(t *testing.T) {
	fs := New()
	v, _ := fs.Open("f", unix.O_RDWR|unix.O_CREAT, 0600)
	defer v.Close()
	for _, off := range []int64{MaxFileSize, MaxFileSize - 2, 1 << 62, 1<<63 - 1} {
		if n, err := v.WriteAt([]byte("xyz"), off); n != 0 || err != unix.EFBIG {
			t.Errorf("WriteAt(%d): n=%d err=%v, want EFBIG", off, n, err)
		}
	}
	if size, _ := v.Size(); size != 0 {
		t.Errorf("failed writes changed the size to %d", size)
	}
	if n, err := v.WriteAt(nil, MaxFileSize); n != 0 || err != nil {
		t.Errorf("empty write at the limit: n=%d err=%v", n, err)
	}
}

func TestTruncate(t *testing.T) {
	fs := New()
	v, _ := fs.Open("f", unix.O_WRONLY|unix.O_CREAT, 0600)
	v.WriteAt([]byte("0123456789"), 0)
	v.Close()

	v, _ = fs.Open("f", unix.O_WRONLY|unix.O_TRUNC, 0)
	defer v.Close()
	v.WriteAt([]byte("x"), 3)
	data, _ := fs.Contents("f")
	if !bytes.Equal(data, []byte("\x00\x00\x00x")) {
		t.Errorf("stale bytes after truncate: %q", data)
	}
}

func TestSeparateInstances(t *testing.T) {
	a, _ := New().Open("x", unix.O_RDWR|unix.O_CREAT, 0600)
	b, _ := New().Open("x", unix.O_RDWR|unix.O_CREAT, 0600)
	if a.Ident() == b.Ident() {
		t.Error("objects of different filesystems share an identity")
	}
}
