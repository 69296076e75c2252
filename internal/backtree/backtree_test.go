package backtree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckMissing(t *testing.T) {
	tree := New()
	assert.Equal(t, StatusMissing, tree.Check("a.txt", time.Unix(100, 0), 10))
}

func TestCheckSame(t *testing.T) {
	tree := New()
	modTime := time.Unix(100, 0)
	tree.Add("a.txt", modTime, 10)
	assert.Equal(t, StatusSame, tree.Check("a.txt", modTime, 10))
}

func TestCheckNewerByTime(t *testing.T) {
	tree := New()
	tree.Add("a.txt", time.Unix(200, 0), 10)
	assert.Equal(t, StatusNewer, tree.Check("a.txt", time.Unix(100, 0), 10))
}

func TestCheckOlderByTime(t *testing.T) {
	tree := New()
	tree.Add("a.txt", time.Unix(100, 0), 10)
	assert.Equal(t, StatusOlder, tree.Check("a.txt", time.Unix(200, 0), 10))
}

func TestCheckNewerBySizeWhenTimesMatch(t *testing.T) {
	tree := New()
	modTime := time.Unix(100, 0)
	tree.Add("a.txt", modTime, 20)
	assert.Equal(t, StatusNewer, tree.Check("a.txt", modTime, 10))
}

func TestIgnoreExcludesFromEnumerate(t *testing.T) {
	tree := New()
	tree.Add("a.txt", time.Unix(100, 0), 10)
	tree.Add("b.txt", time.Unix(100, 0), 10)
	tree.Ignore("a.txt")

	assert.ElementsMatch(t, []string{"b.txt"}, tree.Enumerate())
}

func TestIgnoreUnknownPathIsNoop(t *testing.T) {
	tree := New()
	tree.Ignore("missing.txt")
	assert.Equal(t, 0, tree.Count())
}

func TestCountAndEnumerate(t *testing.T) {
	tree := New()
	tree.Add("a.txt", time.Unix(100, 0), 1)
	tree.Add("b.txt", time.Unix(100, 0), 2)
	assert.Equal(t, 2, tree.Count())
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, tree.Enumerate())
}

func TestCloneIsIndependent(t *testing.T) {
	tree := New()
	tree.Add("a.txt", time.Unix(100, 0), 1)

	clone := tree.Clone()
	clone.Ignore("a.txt")

	assert.ElementsMatch(t, []string{"a.txt"}, tree.Enumerate())
	assert.Empty(t, clone.Enumerate())
}
