package main

import (
	"bytes"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/exitcodes"
	"github.com/kfio/kfio/internal/kern"
	"github.com/kfio/kfio/internal/usermem"
)

const testString = "The quick brown fox jumped over the lazy dog."

// fileTester drives one process through the classic file tester. Progress
// goes to descriptor 1 of that process.
type fileTester struct {
	p   *kern.Proc
	mem *usermem.Flat
	buf usermem.Addr
}

func (ft *fileTester) printf(format string, a ...interface{}) {
	msg := []byte(fmt.Sprintf(format, a...))
	if err := ft.mem.Store(ft.buf, msg); err != nil {
		return
	}
	ft.p.Write(1, ft.buf, len(msg))
}

func (ft *fileTester) fail(what string, err error) error {
	ft.printf("ERROR %s: %v\n", what, err)
	return exitcodes.Wrap(fmt.Errorf("%s: %v", what, err), exitcodes.SelfTest)
}

func (ft *fileTester) open(path string, flags int, mode uint32) (int, error) {
	fd, err := ft.p.Open(path, flags, mode)
	ft.printf("* open() got fd %d\n", fd)
	if err != nil {
		return -1, ft.fail("opening file", err)
	}
	return fd, nil
}

func (ft *fileTester) write(fd int, data string) error {
	ft.printf("* writing test string\n")
	if err := ft.mem.Store(ft.buf, []byte(data)); err != nil {
		return ft.fail("writing file", err)
	}
	n, err := ft.p.Write(fd, ft.buf, len(data))
	ft.printf("* wrote %d bytes\n", n)
	if err != nil {
		return ft.fail("writing file", err)
	}
	return nil
}

// read reads until "n" bytes arrived or end of file.
func (ft *fileTester) read(fd int, n int) ([]byte, error) {
	var out []byte
	for len(out) < n {
		ft.printf("* attempting read of %d bytes\n", n-len(out))
		r, err := ft.p.Read(fd, ft.buf, n-len(out))
		ft.printf("* read %d bytes\n", r)
		if err != nil {
			return nil, ft.fail("reading file", err)
		}
		if r == 0 {
			break
		}
		chunk, err := ft.mem.Load(ft.buf, r)
		if err != nil {
			return nil, ft.fail("reading file", err)
		}
		out = append(out, chunk...)
	}
	ft.printf("* reading complete\n")
	return out, nil
}

func (ft *fileTester) lseek(fd int, off int64, whence int) error {
	if _, err := ft.p.Lseek(fd, off, whence); err != nil {
		return ft.fail("lseek", err)
	}
	return nil
}

// checkRepeated verifies that "got" is "pattern" repeated, starting at
// "start" within the pattern.
func checkRepeated(got []byte, pattern string, start int) bool {
	for i, c := range got {
		if c != pattern[(start+i)%len(pattern)] {
			return false
		}
	}
	return true
}

// selfTest runs the file tester in a new process. Files are created in the
// configured storage.
func selfTest(k *kern.Kernel) error {
	mem := usermem.NewFlat(64 * 1024)
	p, err := k.NewProc(mem)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.SelfTest)
	}
	defer p.Exit()
	ft := &fileTester{p: p, mem: mem, buf: mem.Base()}

	ft.printf("\n**********\n* File Tester\n")
	ft.printf("**********\n* write() works for stdout\n")
	msg := []byte("**********\n* write() works for stderr\n")
	mem.Store(ft.buf, msg)
	p.Write(2, ft.buf, len(msg))

	ft.printf("**********\n* opening new file \"test.file\"\n")
	fd, err := ft.open("test.file", unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0700)
	if err != nil {
		return err
	}
	ft.printf("* writing test string\n")
	if err := ft.write(fd, testString); err != nil {
		return err
	}
	ft.printf("* writing test string again\n")
	if err := ft.write(fd, testString); err != nil {
		return err
	}
	ft.printf("* closing file\n")
	if err := p.Close(fd); err != nil {
		return ft.fail("closing file", err)
	}

	ft.printf("**********\n* opening old file \"test.file\"\n")
	fd, err = ft.open("test.file", unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	ft.printf("* reading entire file into buffer \n")
	got, err := ft.read(fd, 500)
	if err != nil {
		return err
	}
	if len(got) != 2*len(testString) || !checkRepeated(got, testString, 0) {
		return ft.fail("file contents mismatch", fmt.Errorf("read %q", got))
	}

	ft.printf("**********\n* testing dup2\n")
	const fd2 = 11
	if r, err := p.Dup2(fd, fd2); err != nil || r != fd2 {
		return ft.fail("dup2", err)
	}

	ft.printf("**********\n* testing lseek\n")
	if err := ft.lseek(fd, 5, unix.SEEK_SET); err != nil {
		return err
	}
	ft.printf("**********\n* testing lseek on fd2\n")
	if err := ft.lseek(fd2, 5, unix.SEEK_SET); err != nil {
		return err
	}

	ft.printf("* reading 10 bytes of file into buffer \n")
	a, err := ft.read(fd, 10)
	if err != nil {
		return err
	}
	if err := ft.lseek(fd2, 5, unix.SEEK_SET); err != nil {
		return err
	}
	b, err := ft.read(fd2, 10)
	if err != nil {
		return err
	}
	if len(a) != 10 || !checkRepeated(a, testString, 5) || !bytes.Equal(a, b) {
		return ft.fail("file contents mismatch", fmt.Errorf("fd %d read %q, fd %d read %q", fd, a, fd2, b))
	}
	ft.printf("* file lseek  okay\n")
	ft.printf("* closing file\n")
	if err := p.Close(fd); err != nil {
		return ft.fail("closing file", err)
	}
	if err := p.Close(fd2); err != nil {
		return ft.fail("closing file", err)
	}
	return nil
}
