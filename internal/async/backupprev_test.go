package async

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoukydides/riscos-psifs-sub001/internal/backtree"
	"github.com/thoukydides/riscos-psifs-sub001/internal/tarstream"
)

func buildPrevTar(t *testing.T, entries map[string]string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prev.tar")
	w, err := tarstream.OpenOut(path)
	require.NoError(t, err)
	for name, body := range entries {
		require.NoError(t, w.Add(name, modTime, int64(len(body)), bytes.NewReader([]byte(body))))
	}
	require.NoError(t, w.Close())
	return path
}

func readDestNames(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	tr := tar.NewReader(f)
	var names []string
	for {
		h, err := tr.Next()
		if err != nil {
			break
		}
		names = append(names, h.Name)
	}
	return names
}

func TestBackupPrevForwardsUnchangedEntryAndMarksItIgnored(t *testing.T) {
	engine, _ := newTestEngine(t)
	modTime := time.Unix(1000, 0)
	prevPath := buildPrevTar(t, map[string]string{"a.txt": "same"}, modTime)

	destPath := filepath.Join(t.TempDir(), "new.tar")
	dest, err := tarstream.OpenOut(destPath)
	require.NoError(t, err)

	tree := backtree.New()
	tree.Add("a.txt", modTime, int64(len("same")))

	h, err := engine.Start(KindBackupPrev, backupPrevParams{
		PrevTarPath: prevPath,
		Dest:        dest,
		Tree:        tree,
	})
	require.NoError(t, err)
	result := pollUntilDone(t, engine, h)
	require.NoError(t, dest.Close())

	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)
	assert.ElementsMatch(t, []string{"a.txt"}, readDestNames(t, destPath))
	assert.Empty(t, tree.Enumerate(), "the matched entry must be marked ignored so backup-copy skips it")
}

func TestBackupPrevDiscardsStaleEntryLeavingItForCopy(t *testing.T) {
	engine, _ := newTestEngine(t)
	oldTime := time.Unix(1000, 0)
	prevPath := buildPrevTar(t, map[string]string{"a.txt": "stale"}, oldTime)

	destPath := filepath.Join(t.TempDir(), "new.tar")
	dest, err := tarstream.OpenOut(destPath)
	require.NoError(t, err)

	tree := backtree.New()
	// a.txt is missing from the live tree entirely, so its prev-tar
	// record is stale and is dropped rather than forwarded.

	h, err := engine.Start(KindBackupPrev, backupPrevParams{
		PrevTarPath: prevPath,
		Dest:        dest,
		Tree:        tree,
	})
	require.NoError(t, err)
	result := pollUntilDone(t, engine, h)
	require.NoError(t, dest.Close())

	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)
	assert.Empty(t, readDestNames(t, destPath), "a stale entry must not be forwarded into the new tar")
}

func TestBackupPrevPromptsOnNewerLiveEntryAndRespectsSkip(t *testing.T) {
	engine, _ := newTestEngine(t)
	oldTime := time.Unix(1000, 0)
	prevPath := buildPrevTar(t, map[string]string{"a.txt": "old"}, oldTime)

	destPath := filepath.Join(t.TempDir(), "new.tar")
	dest, err := tarstream.OpenOut(destPath)
	require.NoError(t, err)

	tree := backtree.New()
	tree.Add("a.txt", time.Unix(2000, 0), int64(len("old"))) // changed after the previous backup

	h, err := engine.Start(KindBackupPrev, backupPrevParams{
		PrevTarPath: prevPath,
		Dest:        dest,
		Tree:        tree,
	})
	require.NoError(t, err)

	result, err := engine.Poll(h)
	require.NoError(t, err)
	require.Equal(t, StatusWaitNewerResponse, result.Status)

	require.NoError(t, engine.Response(h, ResponseSkip))
	result = pollUntilDone(t, engine, h)
	require.NoError(t, dest.Close())

	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)
	assert.ElementsMatch(t, []string{"a.txt"}, readDestNames(t, destPath))
	assert.Empty(t, tree.Enumerate(), "skip keeps the previous copy and marks it ignored, same as an unchanged match")
}

func TestBackupPrevQuietResponseSuppressesFurtherPrompts(t *testing.T) {
	engine, _ := newTestEngine(t)
	oldTime := time.Unix(1000, 0)
	prevPath := buildPrevTar(t, map[string]string{
		"a.txt": "old-a",
		"b.txt": "old-b",
	}, oldTime)

	destPath := filepath.Join(t.TempDir(), "new.tar")
	dest, err := tarstream.OpenOut(destPath)
	require.NoError(t, err)

	tree := backtree.New()
	tree.Add("a.txt", time.Unix(2000, 0), int64(len("old-a")))
	tree.Add("b.txt", time.Unix(2000, 0), int64(len("old-b")))

	h, err := engine.Start(KindBackupPrev, backupPrevParams{
		PrevTarPath: prevPath,
		Dest:        dest,
		Tree:        tree,
	})
	require.NoError(t, err)

	result, err := engine.Poll(h)
	require.NoError(t, err)
	require.Equal(t, StatusWaitNewerResponse, result.Status)

	require.NoError(t, engine.Response(h, ResponseQuiet))
	result = pollUntilDone(t, engine, h)
	require.NoError(t, dest.Close())

	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)
	assert.Empty(t, readDestNames(t, destPath), "once quiet, every further newer entry is discarded without a second prompt")
}
