package async

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoukydides/riscos-psifs-sub001/internal/backtree"
	"github.com/thoukydides/riscos-psifs-sub001/internal/tarstream"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

func TestBackupCopyFetchesEveryEnumeratedPath(t *testing.T) {
	engine, remote := newTestEngine(t)
	remote.PutFile(`\one.txt`, []byte("one"), wire.AttrRead)
	remote.PutFile(`\two.txt`, []byte("two-longer"), wire.AttrRead)

	destPath := filepath.Join(t.TempDir(), "new.tar")
	dest, err := tarstream.OpenOut(destPath)
	require.NoError(t, err)

	// backupCopyStage only consults Tree.Enumerate() for the path
	// list; the modtime/size it was indexed under do not matter here.
	tree := backtree.New()
	tree.Add(`\one.txt`, time.Unix(0, 0), 3)
	tree.Add(`\two.txt`, time.Unix(0, 0), 10)

	h, err := engine.Start(KindBackupCopy, backupCopyParams{Dest: dest, Tree: tree})
	require.NoError(t, err)

	result := pollUntilDone(t, engine, h)
	require.NoError(t, dest.Close())

	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)
	assert.ElementsMatch(t, []string{`\one.txt`, `\two.txt`}, readDestNames(t, destPath))
}

func TestBackupCopyFailsWhenARemoteFileDisappears(t *testing.T) {
	engine, _ := newTestEngine(t)

	destPath := filepath.Join(t.TempDir(), "new.tar")
	dest, err := tarstream.OpenOut(destPath)
	require.NoError(t, err)
	defer dest.Close()

	tree := backtree.New()
	tree.Add(`\gone.txt`, time.Unix(0, 0), 1)

	h, err := engine.Start(KindBackupCopy, backupCopyParams{Dest: dest, Tree: tree})
	require.NoError(t, err)

	result := pollUntilDone(t, engine, h)
	assert.Equal(t, StatusError, result.Status)
}
