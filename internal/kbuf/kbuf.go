// Package kbuf hands out kernel-owned staging buffers for read and write.
// Small transfers reuse chunks from a pool, larger ones up to the limit are
// allocated fresh.
package kbuf

import (
	"log"
	"sync"

	"github.com/kfio/kfio/internal/kerr"
)

// ChunkSize is the length of the pooled buffers.
const ChunkSize = 64 * 1024

// Pool is a staging buffer allocator with an upper bound on the transfer
// size.
type Pool struct {
	chunks sync.Pool
	maxIO  int
}

// New returns a Pool that refuses transfers larger than "maxIO" bytes.
func New(maxIO int) *Pool {
	return &Pool{
		chunks: sync.Pool{
			New: func() interface{} { return make([]byte, ChunkSize) },
		},
		maxIO: maxIO,
	}
}

// MaxIO returns the largest transfer Get will serve.
func (p *Pool) MaxIO() int {
	return p.maxIO
}

// Get returns a buffer of length "n". It fails with OutOfMemory if "n"
// exceeds the limit and with InvalidArgument if "n" is negative.
func (p *Pool) Get(n int) ([]byte, error) {
	if n < 0 {
		return nil, kerr.InvalidArgument
	}
	if n > p.maxIO {
		return nil, kerr.OutOfMemory
	}
	if n > ChunkSize {
		return make([]byte, n), nil
	}
	s := p.chunks.Get().([]byte)
	if len(s) != ChunkSize {
		log.Panicf("wrong len=%d, want=%d", len(s), ChunkSize)
	}
	return s[:n], nil
}

// Put returns a buffer obtained from Get. Buffers that did not come from the
// pool are dropped.
func (p *Pool) Put(s []byte) {
	if cap(s) != ChunkSize {
		return
	}
	p.chunks.Put(s[:ChunkSize])
}
