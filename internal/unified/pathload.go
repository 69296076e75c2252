package unified

import (
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire/loadexec"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire/rpath"
)

// ValidatePath normalises name through the given variant's round
// trip, per spec.md §4.2's validate_path. Callers compare the result
// against their input to detect a path the remote cannot represent.
func (d *Dispatcher) ValidatePath(variant wire.Variant, name string) (string, error) {
	if variant == wire.VariantERA {
		return rpath.ValidateERA(name)
	}
	return rpath.ValidateSIBO(name)
}

// interactiveFilerCopySentinel1/2 are the two timestamps that collapse
// to the fixed load/exec sentinel pair (spec.md §4.2, §8).
var (
	interactiveFilerCopySentinel1 = loadexec.Sentinel1
	interactiveFilerCopySentinel2 = loadexec.Sentinel2
)

// SynthesiseLoadExec derives RISC-OS load/exec words from a file type
// and remote modification timestamp, per spec.md §4.2's
// synthesise_load_exec.
func (d *Dispatcher) SynthesiseLoadExec(filetype uint16, modTime time.Time) (load, exec uint32) {
	return loadexec.Synthesise(filetype, modTime)
}

func synthesiseFromInfo(filetype uint16, info wire.Info) (load, exec uint32) {
	return loadexec.Synthesise(filetype, info.ModTime)
}
