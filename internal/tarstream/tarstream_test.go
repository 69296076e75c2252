package tarstream

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	w, err := OpenOut(path)
	require.NoError(t, err)
	for name, body := range entries {
		require.NoError(t, w.Add(name, time.Unix(1000, 0), int64(len(body)), bytes.NewReader([]byte(body))))
	}
	require.NoError(t, w.Close())
}

func TestReadBackEveryEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.tar")
	writeFixture(t, path, map[string]string{
		"a.txt": "hello",
		"b.txt": "world!!",
	})

	r, err := OpenIn(path)
	require.NoError(t, err)
	defer r.Close()

	seen := map[string]int64{}
	for {
		info, ok, err := r.Info()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen[info.Name] = info.Size
		require.NoError(t, r.Skip())
	}
	assert.Equal(t, map[string]int64{"a.txt": 5, "b.txt": 7}, seen)
}

func TestCopyEntryIntoAnotherWriter(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "src.tar")
	writeFixture(t, srcPath, map[string]string{"keep.txt": "payload"})

	r, err := OpenIn(srcPath)
	require.NoError(t, err)
	defer r.Close()

	_, ok, err := r.Info()
	require.NoError(t, err)
	require.True(t, ok)

	destPath := filepath.Join(t.TempDir(), "dest.tar")
	w, err := OpenOut(destPath)
	require.NoError(t, err)
	require.NoError(t, r.Copy(w))
	require.NoError(t, w.Close())

	r2, err := OpenIn(destPath)
	require.NoError(t, err)
	defer r2.Close()
	info, ok, err := r2.Info()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "keep.txt", info.Name)
	assert.Equal(t, int64(len("payload")), info.Size)
}

func TestInfoReportsEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tar")
	writeFixture(t, path, map[string]string{})

	r, err := OpenIn(path)
	require.NoError(t, err)
	defer r.Close()

	_, ok, err := r.Info()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.tar")
	writeFixture(t, path, map[string]string{"a.txt": "hello"})

	r, err := OpenIn(path)
	require.NoError(t, err)
	defer r.Close()

	clone, err := r.Clone(path)
	require.NoError(t, err)
	defer clone.Close()

	info, ok, err := clone.Info()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.txt", info.Name)
}
