package main

import (
	"reflect"
	"testing"

	"github.com/kfio/kfio/internal/configfile"
)

// TestPrefixOArgs checks that the "-o x,y,z" parsing works correctly.
func TestPrefixOArgs(t *testing.T) {
	testcases := []struct {
		// i is the input
		i []string
		// o is the expected output
		o []string
		// Do we expect an error?
		e bool
	}{
		{
			i: nil,
			o: nil,
		},
		{
			i: []string{"kfio"},
			o: []string{"kfio"},
		},
		{
			i: []string{"kfio", "-d"},
			o: []string{"kfio", "-d"},
		},
		{
			i: []string{"kfio", "-selftest", "-o", "q"},
			o: []string{"kfio", "-q", "-selftest"},
		},
		{
			i: []string{"kfio", "-selftest", "-o", "q,wpanic"},
			o: []string{"kfio", "-q", "-wpanic", "-selftest"},
		},
		{
			i: []string{"kfio", "-info", "-d", "-o=q,openmax=16"},
			o: []string{"kfio", "-q", "-openmax=16", "-info", "-d"},
		},
		{
			i: []string{"kfio", "-o", "q", "-o", "d"},
			o: []string{"kfio", "-q", "-d"},
		},
		{
			i: []string{"kfio", "-oooo", "a,b"},
			o: []string{"kfio", "-oooo", "a,b"},
		},
		// "--" should also block "-o" parsing.
		{
			i: []string{"kfio", "-info", "--", "-o", "a"},
			o: []string{"kfio", "-info", "--", "-o", "a"},
		},
		// These should error out
		{
			i: []string{"kfio", "-info", "-o"},
			e: true,
		},
		{
			i: []string{"kfio", "-info", "-o", "o"},
			e: true,
		},
	}
	for _, tc := range testcases {
		o, err := prefixOArgs(tc.i)
		e := (err != nil)
		if !reflect.DeepEqual(o, tc.o) || e != tc.e {
			t.Errorf("\n  in=%q\nwant=%q err=%v\n got=%q err=%v", tc.i, tc.o, tc.e, o, e)
		}
	}
}

func TestParseCliOpts(t *testing.T) {
	args, err := parseCliOpts([]string{"kfio", "-d", "-openmax", "16", "-storage", "mem", "-selftest"})
	if err != nil {
		t.Fatal(err)
	}
	if !args.debug || !args.selftest || args.openmax != 16 || args.storage != "mem" {
		t.Errorf("unexpected args %+v", args)
	}
	if args.stressIters != 1000 {
		t.Errorf("stress-iters default: have %d", args.stressIters)
	}

	bad := [][]string{
		{"kfio", "-d", "-q", "-info"},
		{"kfio", "-info", "-selftest"},
		{"kfio", "-openmax=-1", "-info"},
		{"kfio", "-stress", "2", "-stress-iters", "0"},
		{"kfio", "-info", "-o"},
	}
	for _, v := range bad {
		if _, err := parseCliOpts(v); err == nil {
			t.Errorf("%q should fail", v)
		}
	}
}

func TestApplyArgs(t *testing.T) {
	dir := t.TempDir()
	cf := configfile.Default()
	args := argContainer{root: dir, openmax: 16, maxio: 4096, console: "tty:"}
	applyArgs(&args, cf)
	if cf.Storage != configfile.StorageHost || cf.Root != dir {
		t.Errorf("-root should select host storage: %+v", cf)
	}
	if cf.OpenMax != 16 || cf.MaxIO != 4096 || cf.Console != "tty:" {
		t.Errorf("overrides not applied: %+v", cf)
	}
	if cf.SystemOpenMax != configfile.Default().SystemOpenMax {
		t.Errorf("unset limit changed: %d", cf.SystemOpenMax)
	}
	if err := cf.Validate(); err != nil {
		t.Error(err)
	}
}

func TestLoadConfig(t *testing.T) {
	cf, err := loadConfig(&argContainer{})
	if err != nil {
		t.Fatal(err)
	}
	if *cf != *configfile.Default() {
		t.Errorf("want defaults, have %+v", cf)
	}
	if _, err := loadConfig(&argContainer{openmax: 2}); err == nil {
		t.Error("openmax 2 should fail validation")
	}
	if _, err := loadConfig(&argContainer{config: t.TempDir() + "/missing.conf"}); err == nil {
		t.Error("missing config file should fail")
	}
}
