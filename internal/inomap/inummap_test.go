package inomap

import (
	"sync"
	"testing"
)

func TestTranslate(t *testing.T) {
	const baseDev = 12345
	m := NewInumMap(baseDev)

	q := NewQIno(baseDev, TagHost, 1)
	out := m.Translate(q)
	if out != 1 {
		t.Errorf("expected 1, got %d", out)
	}
	q.Ino = inumTranslateBase
	out = m.Translate(q)
	if out < inumTranslateBase {
		t.Errorf("got %d", out)
	}
	out2 := m.Translate(q)
	if out2 != out {
		t.Errorf("unstable mapping: %d %d", out2, out)
	}
}

// The same (Dev, Ino) pair under different tags must not collide.
func TestTranslateTags(t *testing.T) {
	m := NewInumMap(0)
	host := m.Translate(NewQIno(0, TagHost, 7))
	mem := m.Translate(NewQIno(0, TagMem, 7))
	con := m.Translate(NewQIno(0, TagConsole, 7))
	if host != 7 {
		t.Errorf("host inode should pass through, got %d", host)
	}
	if mem == host || con == host || mem == con {
		t.Errorf("collision: host=%d mem=%d con=%d", host, mem, con)
	}
	if m.Count() != 2 {
		t.Errorf("want 2 translated entries, have %d", m.Count())
	}
}

func TestTranslateStress(t *testing.T) {
	const baseDev = 12345
	m := NewInumMap(baseDev)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		q := NewQIno(baseDev, TagHost, 0)
		for i := uint64(1); i <= 10000; i++ {
			q.Ino = i
			out := m.Translate(q)
			if out != i {
				t.Fail()
			}
		}
		wg.Done()
	}()
	go func() {
		q := NewQIno(0, TagMem, 0)
		for i := uint64(1); i <= 10000; i++ {
			q.Ino = i
			out := m.Translate(q)
			if out < inumTranslateBase {
				t.Fail()
			}
		}
		wg.Done()
	}()
	go func() {
		q := NewQIno(4444444, TagHost, 0)
		for i := uint64(1); i <= 10000; i++ {
			q.Ino = i
			out := m.Translate(q)
			if out < inumTranslateBase {
				t.Fail()
			}
		}
		wg.Done()
	}()
	wg.Wait()
	if m.Count() != 20000 {
		t.Fail()
	}
}
