// Package async implements the cooperative, hierarchical task
// scheduler of spec.md §4.1: a flat registry of operations, each
// walked through a five-stage lifecycle by a single-threaded
// scheduler, composing multi-step remote procedures (backup, install,
// restart, bulk read/write, find) out of unified commands and child
// operations. Grounded on the original async.c's op-data record and
// stage dispatch (see DESIGN.md), re-expressed the way rclone's
// fs/rc/jobs engine shapes a similar job registry: a handle-keyed map
// plus a callback-driven run loop, no internal goroutines.
package async

// Status is the lifecycle/activity state of one operation, matching
// spec.md §3's status enumeration.
type Status int

// Status values. Only the four Wait* statuses accept an external
// Response.
const (
	StatusBusy Status = iota
	StatusPaused
	StatusDelegating
	StatusWaitCopyResponse
	StatusWaitRestartResponse
	StatusWaitNewerResponse
	StatusWaitReadResponse
	StatusSuccess
	StatusError
	StatusAborted

	// Descriptive in-flight states, reported via Poll for UI detail.
	StatusEnumeratingTasks
	StatusReadingCommandLine
	StatusOpeningFile
	StatusReadingFile
	StatusWritingFile
	StatusAddingToTar
)

func (s Status) String() string {
	switch s {
	case StatusBusy:
		return "busy"
	case StatusPaused:
		return "paused"
	case StatusDelegating:
		return "delegating"
	case StatusWaitCopyResponse:
		return "wait-for-copy-response"
	case StatusWaitRestartResponse:
		return "wait-for-restart-response"
	case StatusWaitNewerResponse:
		return "wait-for-newer-response"
	case StatusWaitReadResponse:
		return "wait-for-read-response"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusAborted:
		return "aborted"
	case StatusEnumeratingTasks:
		return "enumerating-tasks"
	case StatusReadingCommandLine:
		return "reading-command-line"
	case StatusOpeningFile:
		return "opening-file"
	case StatusReadingFile:
		return "reading-file"
	case StatusWritingFile:
		return "writing-file"
	case StatusAddingToTar:
		return "adding-to-tar"
	default:
		return "unknown"
	}
}

// IsDone reports status ∈ {success, error, aborted} (spec.md §3
// invariant 3).
func (s Status) IsDone() bool {
	return s == StatusSuccess || s == StatusError || s == StatusAborted
}

// IsWaiting reports whether status accepts an external Response.
func (s Status) IsWaiting() bool {
	switch s {
	case StatusWaitCopyResponse, StatusWaitRestartResponse, StatusWaitNewerResponse, StatusWaitReadResponse:
		return true
	default:
		return false
	}
}

// isQuiescent reports the statuses after which the CPU-time
// accumulator stops running (done, paused, waiting, or a child is
// present), per the scheduler loop's step 6.
func isQuiescent(s Status) bool {
	return s.IsDone() || s == StatusPaused || s == StatusDelegating || s.IsWaiting()
}

// Response is a client's answer to a waiting operation.
type Response int

// Responses, matching spec.md §3's response slot.
const (
	ResponseContinue Response = iota
	ResponseCopy
	ResponseSkip
	ResponseRetry
	ResponseQuiet
)

// Kind discriminates the op-kind parameter union (spec.md §3).
type Kind int

// Op-kinds.
const (
	KindShutdown Kind = iota
	KindRestart
	KindRead
	KindWrite
	KindBackup
	KindWriteAndStart
	KindInstall
	KindBackupList
	KindBackupPrev
	KindBackupCopy
	KindTarComplete
	KindFind
)

func (k Kind) String() string {
	switch k {
	case KindShutdown:
		return "shutdown"
	case KindRestart:
		return "restart"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindBackup:
		return "backup"
	case KindWriteAndStart:
		return "write-and-start"
	case KindInstall:
		return "install"
	case KindBackupList:
		return "backup-list"
	case KindBackupPrev:
		return "backup-prev"
	case KindBackupCopy:
		return "backup-copy"
	case KindTarComplete:
		return "tar-complete"
	case KindFind:
		return "find"
	default:
		return "unknown"
	}
}
