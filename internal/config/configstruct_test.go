package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subConfig struct {
	Nested string `config:"nested"`
}

type testConfig struct {
	subConfig
	Name     string `config:"name"`
	Count    int    `config:"count"`
	Quiet    bool   `config:"quiet"`
	Timeout  time.Duration `config:"timeout"`
	NoTag    string
	unexported string
}

func TestItemsRecursesIntoEmbedded(t *testing.T) {
	c := testConfig{}
	items, err := Items(&c)
	require.NoError(t, err)

	byName := make(map[string]Item, len(items))
	for _, it := range items {
		byName[it.Name] = it
	}

	assert.Contains(t, byName, "nested")
	assert.Contains(t, byName, "name")
	assert.Contains(t, byName, "count")
	assert.Contains(t, byName, "quiet")
	assert.Contains(t, byName, "timeout")
	assert.Contains(t, byName, "no_tag", "an untagged field falls back to its snake_cased name")
	assert.NotContains(t, byName, "unexported")
}

func TestItemsRejectsNonPointer(t *testing.T) {
	_, err := Items(testConfig{})
	assert.Error(t, err)
}

func TestSetPopulatesFields(t *testing.T) {
	c := testConfig{}
	err := Set(map[string]string{
		"nested":  "leaf",
		"name":    "widget",
		"count":   "42",
		"quiet":   "true",
		"timeout": "1500ms",
		"unknown": "ignored",
	}, &c)
	require.NoError(t, err)

	assert.Equal(t, "leaf", c.Nested)
	assert.Equal(t, "widget", c.Name)
	assert.Equal(t, 42, c.Count)
	assert.True(t, c.Quiet)
	assert.Equal(t, 1500*time.Millisecond, c.Timeout)
}

func TestSetRejectsBadValue(t *testing.T) {
	c := testConfig{}
	err := Set(map[string]string{"count": "not-a-number"}, &c)
	assert.Error(t, err)
}
