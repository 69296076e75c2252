package config

import (
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
)

// Options holds the unified dispatcher's numeric tunables (stop-poll
// interval and timeout, start settle delay, per-variant chunk sizes),
// with defaults taken from unified.DefaultOptions, plus this process's
// handle-store path and log level; it can be populated from a config
// map (e.g. CLI flags) via Set. internal/async's ETA-smoothing
// thresholds and the scratch buffer's growth policy are fixed
// constants and are not part of it.
type Options struct {
	StopPollInterval time.Duration `config:"stop_poll_interval"`
	StopTimeout      time.Duration `config:"stop_timeout"`
	StartSettleDelay time.Duration `config:"start_settle_delay"`
	MaxChunkERA      int           `config:"max_chunk_era"`
	MaxChunkSIBO     int           `config:"max_chunk_sibo"`

	HandleStorePath string `config:"handle_store_path"`
	LogLevel        string `config:"log_level"`
}

// Default returns the same numeric defaults unified.DefaultOptions
// names, plus this repo's own process-wiring defaults.
func Default() Options {
	u := unified.DefaultOptions()
	return Options{
		StopPollInterval: u.StopPollInterval,
		StopTimeout:      u.StopTimeout,
		StartSettleDelay: u.StartSettleDelay,
		MaxChunkERA:      u.MaxChunkERA,
		MaxChunkSIBO:     u.MaxChunkSIBO,
		HandleStorePath:  "psifs-handles.db",
		LogLevel:         "info",
	}
}

// Unified projects the wire-tuning fields into a unified.Options.
func (o Options) Unified() unified.Options {
	return unified.Options{
		StopPollInterval: o.StopPollInterval,
		StopTimeout:      o.StopTimeout,
		StartSettleDelay: o.StartSettleDelay,
		MaxChunkERA:      o.MaxChunkERA,
		MaxChunkSIBO:     o.MaxChunkSIBO,
	}
}
