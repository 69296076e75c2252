package async

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoukydides/riscos-psifs-sub001/internal/tarstream"
)

func TestTarCompleteKeepForwardsCurrentEntry(t *testing.T) {
	engine, _ := newTestEngine(t)
	prevPath := buildPrevTar(t, map[string]string{"a.txt": "hello"}, time.Unix(1000, 0))
	reader, err := tarstream.OpenIn(prevPath)
	require.NoError(t, err)
	defer reader.Close()
	_, ok, err := reader.Info()
	require.NoError(t, err)
	require.True(t, ok)

	destPath := filepath.Join(t.TempDir(), "new.tar")
	dest, err := tarstream.OpenOut(destPath)
	require.NoError(t, err)

	h, err := engine.Start(KindTarComplete, tarCompleteParams{
		Action: tarCompleteKeep,
		Reader: reader,
		Dest:   dest,
	})
	require.NoError(t, err)
	result := pollUntilDone(t, engine, h)
	require.NoError(t, dest.Close())

	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)
	assert.ElementsMatch(t, []string{"a.txt"}, readDestNames(t, destPath))
}

func TestTarCompleteAddStreamsFromSourceFile(t *testing.T) {
	engine, _ := newTestEngine(t)
	src := filepath.Join(t.TempDir(), "fresh.txt")
	require.NoError(t, os.WriteFile(src, []byte("fresh content"), 0o644))

	destPath := filepath.Join(t.TempDir(), "new.tar")
	dest, err := tarstream.OpenOut(destPath)
	require.NoError(t, err)

	h, err := engine.Start(KindTarComplete, tarCompleteParams{
		Action:  tarCompleteAdd,
		Dest:    dest,
		Name:    `\fresh.txt`,
		ModTime: time.Unix(1000, 0),
		Size:    int64(len("fresh content")),
		SrcPath: src,
	})
	require.NoError(t, err)
	result := pollUntilDone(t, engine, h)
	require.NoError(t, dest.Close())

	require.Equal(t, StatusSuccess, result.Status, result.ErrorText)
	assert.ElementsMatch(t, []string{`\fresh.txt`}, readDestNames(t, destPath))
}
