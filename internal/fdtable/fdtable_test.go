package fdtable

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/kerr"
	"github.com/kfio/kfio/internal/openfiletable"
	"github.com/kfio/kfio/internal/vnode/memfs"
)

// newEntry returns an entry for "name" with the opener's reference held,
// as the open path has it right before Bind.
func newEntry(t *testing.T, oft *openfiletable.Table, fs *memfs.FS, name string) *openfiletable.Entry {
	vn, err := fs.Open(name, unix.O_RDWR|unix.O_CREAT, 0600)
	if err != nil {
		t.Fatal(err)
	}
	e, _, err := oft.FindOrCreate(unix.O_RDWR, vn)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func refCount(e *openfiletable.Entry) int {
	return e.RefCount()
}

func TestBindResolveUnbind(t *testing.T) {
	oft := openfiletable.New(8)
	fs := memfs.New()
	e := newEntry(t, oft, fs, "a")
	fdt := New(4)
	fd, err := fdt.Bind(e, unix.O_RDWR)
	if err != nil || fd != 0 {
		t.Fatalf("fd=%d err=%v", fd, err)
	}
	if refCount(e) != 2 {
		t.Errorf("want refcount 2, have %d", refCount(e))
	}
	if got, acc, err := fdt.Resolve(0); err != nil || got != e || acc != unix.O_RDWR {
		t.Errorf("Resolve(0) = %p, %d, %v", got, acc, err)
	}
	for _, fd := range []int{-1, 1, 4, 1000} {
		if _, _, err := fdt.Resolve(fd); err != kerr.BadDescriptor {
			t.Errorf("Resolve(%d): want EBADF, have %v", fd, err)
		}
		if _, _, err := fdt.Unbind(fd); err != kerr.BadDescriptor {
			t.Errorf("Unbind(%d): want EBADF, have %v", fd, err)
		}
	}
	got, last, err := fdt.Unbind(0)
	if err != nil || got != e || last {
		t.Errorf("Unbind(0) = %p, %v, %v", got, last, err)
	}
	if _, _, err := fdt.Resolve(0); err != kerr.BadDescriptor {
		t.Errorf("want EBADF after unbind, have %v", err)
	}
	if fdt.Count() != 0 {
		t.Errorf("want 0 bound, have %d", fdt.Count())
	}
}

func TestBindFull(t *testing.T) {
	oft := openfiletable.New(8)
	fs := memfs.New()
	e := newEntry(t, oft, fs, "a")
	fdt := New(3)
	for i := 0; i < 3; i++ {
		fd, err := fdt.Bind(e, unix.O_RDWR)
		if err != nil || fd != i {
			t.Fatalf("bind %d: fd=%d err=%v", i, fd, err)
		}
	}
	if _, err := fdt.Bind(e, unix.O_RDWR); err != kerr.TooManyOpenFiles {
		t.Errorf("want EMFILE, have %v", err)
	}
	if refCount(e) != 4 {
		t.Errorf("failed bind leaked a reference: refcount %d", refCount(e))
	}
	// Freeing one slot makes exactly that slot available
	fdt.Unbind(1)
	fd, err := fdt.Bind(e, unix.O_RDWR)
	if err != nil || fd != 1 {
		t.Errorf("fd=%d err=%v", fd, err)
	}
}

func TestInstall(t *testing.T) {
	oft := openfiletable.New(8)
	fs := memfs.New()
	e := newEntry(t, oft, fs, "a")
	fdt := New(4)
	if err := fdt.Install(2, e, unix.O_RDWR); err != nil {
		t.Fatal(err)
	}
	if fs.OpenCount("a") != 2 {
		t.Errorf("Install should take a storage reference, open count %d", fs.OpenCount("a"))
	}
	if err := fdt.Install(2, e, unix.O_RDWR); err != kerr.InvalidArgument {
		t.Errorf("want EINVAL, have %v", err)
	}
	if err := fdt.Install(4, e, unix.O_RDWR); err != kerr.BadDescriptor {
		t.Errorf("want EBADF, have %v", err)
	}
	if refCount(e) != 2 || fs.OpenCount("a") != 2 {
		t.Errorf("failed installs leaked: refcount %d open count %d", refCount(e), fs.OpenCount("a"))
	}
}

func TestDup2(t *testing.T) {
	oft := openfiletable.New(8)
	fs := memfs.New()
	a := newEntry(t, oft, fs, "a")
	b := newEntry(t, oft, fs, "b")
	fdt := New(8)
	fdA, _ := fdt.Bind(a, unix.O_RDWR)
	fdB, _ := fdt.Bind(b, unix.O_RDWR)

	if d, err := fdt.Dup2(fdA, fdA); err != nil || d != nil {
		t.Errorf("self dup2: %v %v", d, err)
	}
	if _, err := fdt.Dup2(5, 6); err != kerr.BadDescriptor {
		t.Errorf("unbound old: want EBADF, have %v", err)
	}
	if _, err := fdt.Dup2(fdA, 8); err != kerr.BadDescriptor {
		t.Errorf("new out of range: want EBADF, have %v", err)
	}

	d, err := fdt.Dup2(fdA, 6)
	if err != nil || d != nil {
		t.Fatalf("dup2 to free slot: %v %v", d, err)
	}
	if fs.OpenCount("a") != 2 {
		t.Errorf("want open count 2, have %d", fs.OpenCount("a"))
	}
	d, err = fdt.Dup2(fdA, fdB)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Entry != b || d.Fd != fdB || d.Last {
		t.Errorf("displaced = %+v", d)
	}
	if got, _, _ := fdt.Resolve(fdB); got != a {
		t.Error("fdB should resolve to a")
	}
	if refCount(a) != 4 {
		t.Errorf("want refcount 4, have %d", refCount(a))
	}
}

func TestDestroy(t *testing.T) {
	oft := openfiletable.New(8)
	fs := memfs.New()
	a := newEntry(t, oft, fs, "a")
	fdt := New(8)
	fdt.Bind(a, unix.O_RDWR)
	fdt.Dup2(0, 5)
	// Drop the opener's reference so the bindings are the only ones
	a.DecRef()

	rel := fdt.Destroy()
	if len(rel) != 2 || rel[0].Fd != 0 || rel[1].Fd != 5 {
		t.Fatalf("released = %+v", rel)
	}
	if rel[0].Last || !rel[1].Last {
		t.Errorf("only the final release is last: %+v", rel)
	}
	if fdt.Count() != 0 {
		t.Errorf("want 0 bound, have %d", fdt.Count())
	}
}

// A descriptor keeps its own access mode when the entry is shared, and
// dup2 copies it.
func TestAccessModePerDescriptor(t *testing.T) {
	oft := openfiletable.New(8)
	fs := memfs.New()
	e := newEntry(t, oft, fs, "a")
	fdt := New(8)
	rw, _ := fdt.Bind(e, unix.O_RDWR)
	fs.Open("a", unix.O_RDONLY, 0)
	ro, err := fdt.Bind(e, unix.O_RDONLY)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fdt.Dup2(ro, 5); err != nil {
		t.Fatal(err)
	}
	for fd, want := range map[int]int{rw: unix.O_RDWR, ro: unix.O_RDONLY, 5: unix.O_RDONLY} {
		got, acc, err := fdt.Resolve(fd)
		if err != nil || got != e {
			t.Fatalf("Resolve(%d) = %p, %v", fd, got, err)
		}
		if acc != want {
			t.Errorf("fd %d: want access mode %d, have %d", fd, want, acc)
		}
	}
}
