package async

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

func TestWriteCreatesNewRemoteObject(t *testing.T) {
	engine, remote := newTestEngine(t)
	local := filepath.Join(t.TempDir(), "local.txt")
	require.NoError(t, os.WriteFile(local, []byte("payload"), 0o644))

	h, err := engine.Start(KindWrite, WriteParams{LocalPath: local, RemotePath: `\dest.txt`})
	require.NoError(t, err)

	result := pollUntilDone(t, engine, h)
	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)

	data, ok := remote.FileData(`\dest.txt`)
	require.True(t, ok)
	assert.Equal(t, "payload", string(data))
}

func TestWriteReplacesLockedRemoteObject(t *testing.T) {
	engine, remote := newTestEngine(t)
	remote.PutFile(`\dest.txt`, []byte("old"), wire.AttrRead|wire.AttrLocked)
	local := filepath.Join(t.TempDir(), "local.txt")
	require.NoError(t, os.WriteFile(local, []byte("new-and-longer"), 0o644))

	h, err := engine.Start(KindWrite, WriteParams{LocalPath: local, RemotePath: `\dest.txt`})
	require.NoError(t, err)

	result := pollUntilDone(t, engine, h)
	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)

	data, ok := remote.FileData(`\dest.txt`)
	require.True(t, ok)
	assert.Equal(t, "new-and-longer", string(data))
}

func TestWriteStampsRemoteWithLocalModTime(t *testing.T) {
	engine, remote := newTestEngine(t)
	local := filepath.Join(t.TempDir(), "local.txt")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))
	stamp := time.Unix(1_700_000_000, 0)
	require.NoError(t, os.Chtimes(local, stamp, stamp))

	h, err := engine.Start(KindWrite, WriteParams{LocalPath: local, RemotePath: `\dest.txt`})
	require.NoError(t, err)
	result := pollUntilDone(t, engine, h)
	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)

	modTime, ok := remote.FileModTime(`\dest.txt`)
	require.True(t, ok)
	assert.True(t, modTime.Equal(stamp), "remote object should carry the local file's modification time")
}

func TestWriteFailsWhenLocalFileMissing(t *testing.T) {
	engine, _ := newTestEngine(t)
	h, err := engine.Start(KindWrite, WriteParams{
		LocalPath:  filepath.Join(t.TempDir(), "missing.txt"),
		RemotePath: `\dest.txt`,
	})
	require.NoError(t, err)

	result := pollUntilDone(t, engine, h)
	assert.Equal(t, StatusError, result.Status)
}

func TestWriteAndStartWritesThenStartsTheRemoteFile(t *testing.T) {
	engine, remote := newTestEngine(t)
	// The unified dispatcher's "start" sub-state machine only settles
	// (and so only reports success) once Poll has advanced its timer
	// queue past the real deadline it set at submit time; pinning the
	// engine's own clock to the future makes that unconditionally due
	// on the very first Poll, instead of the test waiting out a real
	// multi-second delay.
	engine.now = func() time.Time { return time.Now().Add(time.Hour) }
	local := filepath.Join(t.TempDir(), "local.txt")
	require.NoError(t, os.WriteFile(local, []byte("run me"), 0o644))

	var startedPath, startedArgs string
	remote.SetStartHook(func(path, args string) (bool, error) {
		startedPath, startedArgs = path, args
		return true, nil
	})

	h, err := engine.Start(KindWriteAndStart, WriteAndStartParams{
		LocalPath:  local,
		RemotePath: `\dest,ffb`,
	})
	require.NoError(t, err)

	result := pollUntilDone(t, engine, h)
	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)
	assert.Equal(t, `\dest,ffb`, startedPath)
	assert.Empty(t, startedArgs)
}

func TestWriteAndStartWithExecPassesRemotePathAsArgument(t *testing.T) {
	engine, remote := newTestEngine(t)
	engine.now = func() time.Time { return time.Now().Add(time.Hour) }
	local := filepath.Join(t.TempDir(), "setup.sis")
	require.NoError(t, os.WriteFile(local, []byte("sis"), 0o644))

	var startedPath, startedArgs string
	remote.SetStartHook(func(path, args string) (bool, error) {
		startedPath, startedArgs = path, args
		return true, nil
	})

	h, err := engine.Start(KindWriteAndStart, WriteAndStartParams{
		LocalPath:  local,
		RemotePath: `\setup.sis`,
		Exec:       `\SISInstall`,
	})
	require.NoError(t, err)

	result := pollUntilDone(t, engine, h)
	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)
	assert.Equal(t, `\SISInstall`, startedPath)
	assert.Equal(t, `\setup.sis`, startedArgs)
}
