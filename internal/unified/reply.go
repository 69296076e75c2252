package unified

import (
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

// DriveReply is the reply to DriveCmd.
type DriveReply struct {
	Present  bool
	Name     string
	UniqueID uint32
}

func (DriveReply) Tag() Tag { return TagDrive }

// NameReply is the reply to NameCmd: the round-tripped path.
type NameReply struct{ Path string }

func (NameReply) Tag() Tag { return TagName }

// RISCEntry is one directory entry in RISC OS shape, per spec.md
// §4.2's "list" translating each wire entry "into the RISC OS shape".
type RISCEntry struct {
	Name     string
	IsDir    bool
	Size     int64
	Load     uint32
	Exec     uint32
	Attr     wire.Attr
	FileType uint16
	// ModTime is the remote's raw modification timestamp, carried
	// alongside the synthesised Load/Exec words so that read/write
	// async ops can stamp the far side they did not just synthesise
	// load/exec for (spec.md §4.1 "read"/"write": "apply load/exec/
	// attr" locally, "read local stamp" before writing remotely).
	ModTime time.Time
}

// ListReply is the reply to ListCmd: entries sorted case-
// insensitively by name.
type ListReply struct{ Entries []RISCEntry }

func (ListReply) Tag() Tag { return TagList }

// InfoReply is the reply to InfoCmd, in RISC OS shape.
type InfoReply struct{ Entry RISCEntry }

func (InfoReply) Tag() Tag { return TagInfo }

// EmptyReply is the reply to every command that returns nothing
// beyond success (mkdir, remove, rmdir, rename, access, stamp, close,
// seek, size, flush, power, wtime). It carries the originating
// command's tag so Reply.Tag() stays accurate even though many
// commands share this one reply shape.
type EmptyReply struct{ CmdTag Tag }

func (e EmptyReply) Tag() Tag { return e.CmdTag }

// OpenReply is the reply to OpenCmd.
type OpenReply struct{ Handle FileHandle }

func (OpenReply) Tag() Tag { return TagOpen }

// ReadReply is the reply to ReadCmd.
type ReadReply struct{ Data []byte }

func (ReadReply) Tag() Tag { return TagRead }

// WriteReply is the reply to WriteCmd: bytes actually written.
type WriteReply struct{ N int }

func (WriteReply) Tag() Tag { return TagWrite }

// MachineReply is the reply to MachineCmd.
type MachineReply struct{ Info wire.MachineInfo }

func (MachineReply) Tag() Tag { return TagMachine }

// TaskReply describes one task in RISC-OS-rendered shape: path-like
// names/args are re-rendered into RISC OS form, anything else is kept
// as the wire service returned it. No character-set decoding is
// applied to either string.
type TaskReply struct {
	ID   uint32
	Name string
	Args string
}

// TasksReply is the reply to TasksCmd, in caller/insertion order (not
// sorted by name — spec.md §8 scenario 6).
type TasksReply struct{ Tasks []TaskReply }

func (TasksReply) Tag() Tag { return TagTasks }

// DetailReply is the reply to DetailCmd.
type DetailReply struct{ Line string }

func (DetailReply) Tag() Tag { return TagDetail }

// StartReply is the reply to StartCmd.
type StartReply struct{ TaskID uint32 }

func (StartReply) Tag() Tag { return TagStart }

// RTimeReply is the reply to RTimeCmd.
type RTimeReply struct{ Time time.Time }

func (RTimeReply) Tag() Tag { return TagRTime }

// OwnerReply is the reply to OwnerCmd.
type OwnerReply struct{ Owner string }

func (OwnerReply) Tag() Tag { return TagOwner }
