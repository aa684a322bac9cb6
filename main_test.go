package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kfio/kfio/internal/configfile"
	"github.com/kfio/kfio/internal/exitcodes"
	"github.com/kfio/kfio/internal/kern"
	"github.com/kfio/kfio/internal/vnode/console"
)

func bootTest(t *testing.T, cf *configfile.ConfFile) (*kern.Kernel, *bytes.Buffer) {
	out := &bytes.Buffer{}
	con := console.New(strings.NewReader(""), out)
	storage, _, err := newStorage(cf, con)
	require.NoError(t, err)
	k, err := kern.Boot(kern.Config{
		OpenMax:       cf.OpenMax,
		SystemOpenMax: cf.SystemOpenMax,
		MaxIO:         cf.MaxIO,
		Console:       cf.Console,
	}, storage)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, k.Shutdown())
		require.Equal(t, 0, con.Refs())
	})
	return k, out
}

func TestSelfTestMem(t *testing.T) {
	k, out := bootTest(t, configfile.Default())
	require.NoError(t, selfTest(k))
	require.Contains(t, out.String(), "* write() works for stderr")
	require.Contains(t, out.String(), "* read 90 bytes")
	require.Contains(t, out.String(), "* file lseek  okay")
	require.Equal(t, 3, k.Files().CountOpenFiles())
}

func TestSelfTestHost(t *testing.T) {
	dir := t.TempDir()
	cf := configfile.Default()
	cf.Storage = configfile.StorageHost
	cf.Root = dir
	k, _ := bootTest(t, cf)
	require.NoError(t, selfTest(k))
	// Run twice: O_TRUNC makes the second run start from an empty file
	require.NoError(t, selfTest(k))
	data, err := os.ReadFile(filepath.Join(dir, "test.file"))
	require.NoError(t, err)
	require.Equal(t, testString+testString, string(data))
}

func TestStress(t *testing.T) {
	k, _ := bootTest(t, configfile.Default())
	require.NoError(t, stress(k, 6, 200))
	require.Equal(t, 3, k.Files().CountOpenFiles())
}

func TestStressTooManyWorkers(t *testing.T) {
	cf := configfile.Default()
	cf.OpenMax = 8
	k, _ := bootTest(t, cf)
	err := stress(k, 20, 1)
	require.Error(t, err)
	require.Equal(t, exitcodes.Stress, exitcodes.Code(err))
}

func TestCheckRepeated(t *testing.T) {
	require.True(t, checkRepeated([]byte(testString+testString), testString, 0))
	require.True(t, checkRepeated([]byte("quick brow"), testString, 4))
	require.False(t, checkRepeated([]byte("quick brow"), testString, 5))
}
