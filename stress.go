package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/kfio/kfio/internal/exitcodes"
	"github.com/kfio/kfio/internal/kern"
	"github.com/kfio/kfio/internal/tlog"
	"github.com/kfio/kfio/internal/usermem"
)

const stressFile = "stress.file"

// stressRecord returns the fixed-length record worker "w" writes in
// iteration "i".
func stressRecord(w, i int) []byte {
	return []byte(fmt.Sprintf("w%04d i%08d\n", w, i))
}

var stressRecordLen = len(stressRecord(0, 0))

// stress appends records to one file from "workers" goroutines. Even
// workers write through dup2'd descriptors of a shared process, odd workers
// through their own process that opened the file independently. Both share
// one open file entry, so no record may be lost or torn.
func stress(k *kern.Kernel, workers int, iters int) error {
	t0 := time.Now()
	mem := usermem.NewFlat(workers * stressRecordLen)
	shared, err := k.NewProc(mem)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.Stress)
	}
	defer shared.Exit()
	fd, err := shared.Open(stressFile, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0600)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.Stress)
	}

	type worker struct {
		p   *kern.Proc
		mem *usermem.Flat
		fd  int
		buf usermem.Addr
	}
	ws := make([]worker, workers)
	for w := range ws {
		if w%2 == 0 {
			nfd := fd + 1 + w/2
			if _, err := shared.Dup2(fd, nfd); err != nil {
				return exitcodes.Wrap(fmt.Errorf("dup2(%d, %d): %v", fd, nfd, err), exitcodes.Stress)
			}
			ws[w] = worker{p: shared, mem: mem, fd: nfd, buf: mem.Base() + usermem.Addr(w*stressRecordLen)}
			continue
		}
		pmem := usermem.NewFlat(stressRecordLen)
		p, err := k.NewProc(pmem)
		if err != nil {
			return exitcodes.Wrap(err, exitcodes.Stress)
		}
		defer p.Exit()
		pfd, err := p.Open(stressFile, unix.O_WRONLY, 0)
		if err != nil {
			return exitcodes.Wrap(err, exitcodes.Stress)
		}
		ws[w] = worker{p: p, mem: pmem, fd: pfd, buf: pmem.Base()}
	}
	tlog.Debug.Printf("stress: %d workers ready, open files: %d", workers, k.Files().CountOpenFiles())

	g, ctx := errgroup.WithContext(context.Background())
	for w := range ws {
		w := w
		g.Go(func() error {
			wk := ws[w]
			for i := 0; i < iters; i++ {
				if ctx.Err() != nil {
					return nil
				}
				rec := stressRecord(w, i)
				if err := wk.mem.Store(wk.buf, rec); err != nil {
					return err
				}
				n, err := wk.p.Write(wk.fd, wk.buf, len(rec))
				if err != nil {
					return fmt.Errorf("worker %d: write: %v", w, err)
				}
				if n != len(rec) {
					return fmt.Errorf("worker %d: short write %d", w, n)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exitcodes.Wrap(err, exitcodes.Stress)
	}
	if err := verifyStress(shared, mem, fd, workers, iters); err != nil {
		return exitcodes.Wrap(err, exitcodes.Stress)
	}
	tlog.Info.Printf("stress: %d workers x %d records verified in %v",
		workers, iters, time.Since(t0).Round(time.Millisecond))
	return nil
}

// verifyStress reads the file back and checks that every worker's records
// are present, intact and in order.
func verifyStress(p *kern.Proc, mem *usermem.Flat, fd int, workers int, iters int) error {
	if _, err := p.Lseek(fd, 0, unix.SEEK_SET); err != nil {
		return err
	}
	next := make([]int, workers)
	total := 0
	for {
		n, err := p.Read(fd, mem.Base(), stressRecordLen)
		if err != nil {
			return fmt.Errorf("read back: %v", err)
		}
		if n == 0 {
			break
		}
		if n != stressRecordLen {
			return fmt.Errorf("record %d: short read %d", total, n)
		}
		rec, err := mem.Load(mem.Base(), n)
		if err != nil {
			return err
		}
		var w, i int
		if _, err := fmt.Sscanf(string(rec), "w%04d i%08d\n", &w, &i); err != nil || w < 0 || w >= workers {
			return fmt.Errorf("record %d is torn: %q", total, rec)
		}
		if i != next[w] {
			return fmt.Errorf("worker %d: want record %d, have %d", w, next[w], i)
		}
		next[w]++
		total++
	}
	if total != workers*iters {
		return fmt.Errorf("want %d records, have %d", workers*iters, total)
	}
	return nil
}
