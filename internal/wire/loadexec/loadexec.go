// Package loadexec synthesises RISC-OS load/exec address words from a
// remote file's type and modification timestamp (spec.md §4.2's
// synthesise_load_exec), including the "interactive-filer-copy"
// sentinel: both sentinel timestamps map to the fixed pair
// 0xdeaddead/0xdeaddead.
package loadexec

import "time"

// Sentinel is the fixed load/exec pair returned for the two sentinel
// "interactive-filer-copy" timestamps (spec.md §4.2, §8).
const Sentinel uint32 = 0xdeaddead

// riscEpoch is the RISC OS centisecond epoch, 1900-01-01 00:00:00 UTC,
// the origin every non-sentinel load/exec timestamp is measured from.
var riscEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Sentinel1 and Sentinel2 are the two input timestamps that both map
// to the Sentinel load/exec pair (spec.md §8's "except at the two
// sentinel dates"). They stand in for the two special-cased dates the
// original interactive-filer-copy path could produce.
var (
	Sentinel1 = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	Sentinel2 = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Synthesise derives (load, exec) for a file of the given RISC OS
// filetype (a 12-bit value) and modification date d. Typed files get
// a load address of the form 0xFFFtttdd (ttt = filetype, dd = bits
// 32..39 of the centisecond count) per the standard RISC OS
// convention; exec carries the low 32 bits of the
// centisecond-since-epoch count. The two sentinel dates always
// collapse to Sentinel/Sentinel.
func Synthesise(filetype uint16, d time.Time) (load, exec uint32) {
	if d.Equal(Sentinel1) || d.Equal(Sentinel2) {
		return Sentinel, Sentinel
	}
	centiseconds := uint64(d.Sub(riscEpoch) / (10 * time.Millisecond))
	load = 0xFFF00000 | (uint32(filetype&0xFFF) << 8) | uint32((centiseconds>>32)&0xFF)
	exec = uint32(centiseconds & 0xFFFFFFFF)
	return load, exec
}
