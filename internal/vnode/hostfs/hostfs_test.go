package hostfs

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func newFS(t *testing.T) (*FS, string) {
	dir := t.TempDir()
	fs, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	return fs, dir
}

func TestSharedVnode(t *testing.T) {
	fs, dir := newFS(t)
	w, err := fs.Open("test.file", unix.O_WRONLY|unix.O_CREAT, 0600)
	if err != nil {
		t.Fatal(err)
	}
	r, err := fs.Open("/test.file", unix.O_RDONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if w != r {
		t.Fatal("two opens of one host file returned different vnodes")
	}
	// The write-only open supplied the write fd, the read-only open the read fd
	if _, err := w.WriteAt([]byte("abcdef"), 0); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 10)
	n, err := r.ReadAt(buf, 2)
	if err != nil || string(buf[:n]) != "cdef" {
		t.Errorf("n=%d err=%v data=%q", n, err, buf[:n])
	}
	if size, _ := r.Size(); size != 6 {
		t.Errorf("want size 6, have %d", size)
	}
	if fs.OpenObjects() != 1 {
		t.Errorf("want 1 open object, have %d", fs.OpenObjects())
	}
	w.Close()
	r.Close()
	if fs.OpenObjects() != 0 {
		t.Errorf("want 0 open objects, have %d", fs.OpenObjects())
	}
	data, _ := os.ReadFile(filepath.Join(dir, "test.file"))
	if string(data) != "abcdef" {
		t.Errorf("host file has %q", data)
	}
}

func TestReadOnlyVnodeRejectsWrite(t *testing.T) {
	fs, dir := newFS(t)
	os.WriteFile(filepath.Join(dir, "ro"), []byte("x"), 0600)
	v, err := fs.Open("ro", unix.O_RDONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()
	if _, err := v.WriteAt([]byte("y"), 0); err != unix.EBADF {
		t.Errorf("want EBADF, have %v", err)
	}
}

func TestNoEscape(t *testing.T) {
	fs, dir := newFS(t)
	if got := fs.hostPath("../../etc/passwd"); got != filepath.Join(dir, "etc/passwd") {
		t.Errorf("path escaped the root: %q", got)
	}
}

func TestOpenErrors(t *testing.T) {
	fs, _ := newFS(t)
	if _, err := fs.Open("missing", unix.O_RDONLY, 0); err != unix.ENOENT {
		t.Errorf("want ENOENT, have %v", err)
	}
	if _, err := fs.Open("/", unix.O_RDONLY, 0); err != unix.EISDIR {
		t.Errorf("want EISDIR, have %v", err)
	}
	if _, err := New(filepath.Join(t.TempDir(), "nonexistent")); err == nil {
		t.Error("New on a missing directory should fail")
	}
}
