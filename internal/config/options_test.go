package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
)

func TestDefaultMatchesUnifiedDefaults(t *testing.T) {
	opt := Default()
	u := unified.DefaultOptions()
	assert.Equal(t, "info", opt.LogLevel)
	assert.NotEmpty(t, opt.HandleStorePath)
	assert.Equal(t, u.StopPollInterval, opt.StopPollInterval)
	assert.Equal(t, u.MaxChunkERA, opt.MaxChunkERA)
	assert.Equal(t, u.MaxChunkSIBO, opt.MaxChunkSIBO)
}

func TestOptionsRoundTripThroughItems(t *testing.T) {
	opt := Default()
	items, err := Items(&opt)
	assert.NoError(t, err)

	names := make(map[string]bool, len(items))
	for _, it := range items {
		names[it.Name] = true
	}
	for _, want := range []string{
		"stop_poll_interval", "stop_timeout", "start_settle_delay",
		"max_chunk_era", "max_chunk_sibo", "handle_store_path", "log_level",
	} {
		assert.True(t, names[want], "expected config item %q", want)
	}
}
