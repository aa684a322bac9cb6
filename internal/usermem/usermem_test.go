package usermem

import (
	"bytes"
	"testing"

	"github.com/kfio/kfio/internal/kerr"
)

func TestFlat(t *testing.T) {
	f := NewFlat(100)
	base := f.Base()
	if err := f.Store(base+10, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	got, err := f.Load(base+10, 3)
	if err != nil || !bytes.Equal(got, []byte("abc")) {
		t.Errorf("got %q err=%v", got, err)
	}
	testTable := []struct {
		a    Addr
		n    int
		want error
	}{
		{0, 1, kerr.Fault},
		{base - 1, 1, kerr.Fault},
		{base, 100, nil},
		{base, 101, kerr.Fault},
		{base + 100, 0, nil},
		{base + 101, 0, kerr.Fault},
		{base + 99, 2, kerr.Fault},
	}
	for _, v := range testTable {
		err := f.CopyOut(v.a, make([]byte, v.n))
		if err != v.want {
			t.Errorf("addr=%#x n=%d: want %v have %v", v.a, v.n, v.want, err)
		}
	}
}
