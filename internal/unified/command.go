// Package unified implements the protocol-agnostic façade of spec.md
// §4.2: a single command vocabulary and a single callback shape over
// the two incompatible wire-protocol queues (16-bit SIBO, 32-bit
// EPOC/ERA), plus the multi-round-trip sub-state machines, path
// translation and load/exec synthesis that go with it. No character-
// set translation happens here: names and other strings pass through
// in whatever encoding the wire service delivers them (the converters
// in internal/wire/charset are not called from this package).
package unified

import (
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

// Tag discriminates the command/reply sum type, per spec.md §3's
// "Unified command record" and the Design Notes' "tagged unions of
// commands/replies... implement as a sum type".
type Tag int

// Command tags, matching spec.md §3's vocabulary.
const (
	TagDrive Tag = iota
	TagName // validate_path
	TagList
	TagInfo
	TagMkdir
	TagRemove
	TagRmdir
	TagRename
	TagAccess // set attributes
	TagStamp
	TagOpen
	TagClose
	TagSeek
	TagRead
	TagWrite
	TagZero
	TagSize // set extent
	TagFlush
	TagMachine
	TagTasks
	TagDetail // command line of a task
	TagStop
	TagStart
	TagPower
	TagRTime
	TagWTime
	TagOwner
)

// Command is the tagged command record. Concrete types below
// implement it; dispatcher.Submit type-switches on the concrete type
// (equivalently, on Tag()) to decide how to drive it, exactly as the
// Design Notes prescribe ("pattern-match in the stage handlers").
type Command interface {
	Tag() Tag
}

// Reply is the tagged reply record, parallel to Command.
type Reply interface {
	Tag() Tag
}

// --- Commands -------------------------------------------------------

// DriveCmd queries one drive letter's presence/name/unique ID.
type DriveCmd struct{ Drive byte }

func (DriveCmd) Tag() Tag { return TagDrive }

// NameCmd validates (round-trips) a RISC OS path.
type NameCmd struct{ Path string }

func (NameCmd) Tag() Tag { return TagName }

// ListCmd lists a directory.
type ListCmd struct{ Path string }

func (ListCmd) Tag() Tag { return TagList }

// InfoCmd fetches one object's info.
type InfoCmd struct{ Path string }

func (InfoCmd) Tag() Tag { return TagInfo }

// MkdirCmd creates a directory.
type MkdirCmd struct{ Path string }

func (MkdirCmd) Tag() Tag { return TagMkdir }

// RemoveCmd deletes a file.
type RemoveCmd struct{ Path string }

func (RemoveCmd) Tag() Tag { return TagRemove }

// RmdirCmd deletes a directory.
type RmdirCmd struct{ Path string }

func (RmdirCmd) Tag() Tag { return TagRmdir }

// RenameCmd renames/moves an object.
type RenameCmd struct{ From, To string }

func (RenameCmd) Tag() Tag { return TagRename }

// AccessCmd sets an object's attributes.
type AccessCmd struct {
	Path string
	Attr wire.Attr
}

func (AccessCmd) Tag() Tag { return TagAccess }

// StampCmd sets an object's modification timestamp.
type StampCmd struct {
	Path string
	Time time.Time
}

func (StampCmd) Tag() Tag { return TagStamp }

// OpenCmd opens a file, returning a dispatcher-local FileHandle.
type OpenCmd struct {
	Path string
	Mode wire.OpenMode
}

func (OpenCmd) Tag() Tag { return TagOpen }

// CloseCmd closes a previously opened file.
type CloseCmd struct{ Handle FileHandle }

func (CloseCmd) Tag() Tag { return TagClose }

// SeekCmd repositions a file handle.
type SeekCmd struct {
	Handle FileHandle
	Offset int64
}

func (SeekCmd) Tag() Tag { return TagSeek }

// ReadCmd reads up to Length bytes, looping internally over bounded
// wire chunks (spec.md §4.2 "read") until Length is reached or EOF.
type ReadCmd struct {
	Handle FileHandle
	Length int
}

func (ReadCmd) Tag() Tag { return TagRead }

// WriteCmd writes Data, looping internally over bounded wire chunks.
type WriteCmd struct {
	Handle FileHandle
	Data   []byte
}

func (WriteCmd) Tag() Tag { return TagWrite }

// ZeroCmd writes Length zero bytes from a pre-zeroed scratch buffer.
type ZeroCmd struct {
	Handle FileHandle
	Length int
}

func (ZeroCmd) Tag() Tag { return TagZero }

// SizeCmd sets a file's extent (truncate/pre-extend).
type SizeCmd struct {
	Handle FileHandle
	Size   int64
}

func (SizeCmd) Tag() Tag { return TagSize }

// FlushCmd flushes a file handle's buffers.
type FlushCmd struct{ Handle FileHandle }

func (FlushCmd) Tag() Tag { return TagFlush }

// MachineCmd reads the remote's machine info.
type MachineCmd struct{}

func (MachineCmd) Tag() Tag { return TagMachine }

// TasksCmd enumerates running remote tasks.
type TasksCmd struct{}

func (TasksCmd) Tag() Tag { return TagTasks }

// DetailCmd fetches a task's command line.
type DetailCmd struct{ TaskID uint32 }

func (DetailCmd) Tag() Tag { return TagDetail }

// StopCmd stops a running task, polling until it has gone or a
// timeout elapses (spec.md §4.2 "stop").
type StopCmd struct{ TaskID uint32 }

func (StopCmd) Tag() Tag { return TagStop }

// StartCmd starts path with args, settling before reporting success
// (spec.md §4.2 "start").
type StartCmd struct{ Path, Args string }

func (StartCmd) Tag() Tag { return TagStart }

// PowerCmd requests the remote power state.
type PowerCmd struct{}

func (PowerCmd) Tag() Tag { return TagPower }

// RTimeCmd reads the remote's home time.
type RTimeCmd struct{}

func (RTimeCmd) Tag() Tag { return TagRTime }

// WTimeCmd sets the remote's home time, preserving auxiliary
// time-zone fields read via a prior machine-info call (spec.md §4.2
// "wtime").
type WTimeCmd struct{ Time time.Time }

func (WTimeCmd) Tag() Tag { return TagWTime }

// OwnerCmd reads the remote's registered owner string.
type OwnerCmd struct{}

func (OwnerCmd) Tag() Tag { return TagOwner }

// FileHandle is an opaque dispatcher-local handle over a remote open
// file or directory; it wraps the underlying wire.Service handle
// together with which Service/variant opened it, so Close et al. can
// be routed back to the right variant without the caller needing to
// track that.
type FileHandle struct {
	wireHandle int32
	variant    wire.Variant
}
