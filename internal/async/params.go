package async

import (
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

// ShutdownParams configures a shutdown operation: stop every running
// task whose argument string matches Pattern, logging each to LogPath.
type ShutdownParams struct {
	Pattern string
	LogPath string
}

// RestartParams configures a restart operation: re-launch every
// "name args" pair recorded in LogPath.
type RestartParams struct {
	LogPath string
}

// ReadParams configures a read operation: copy one remote object to
// LocalPath.
type ReadParams struct {
	RemotePath string
	LocalPath  string
}

// WriteParams configures a write operation: copy one local file to
// RemotePath, stamping it with the local file's modification time and
// setting its read attribute (plus write, if the local file is
// owner-writable).
type WriteParams struct {
	LocalPath  string
	RemotePath string
}

// WriteAndStartParams configures a write-and-start operation: write
// LocalPath to RemotePath, then start RemotePath (or Exec with
// RemotePath as its argument, if Exec is non-empty).
type WriteAndStartParams struct {
	LocalPath  string
	RemotePath string
	Exec       string
}

// BackupParams configures a full tree backup: walk RemoteRoot,
// diffing against the tar at PrevTarPath (if non-empty) and writing
// the result to NewTarPath.
type BackupParams struct {
	RemoteRoot  string
	PrevTarPath string
	NewTarPath  string
}

// InstallParams configures an installer run: look for InstallerName
// under the remote root `\` (other drives are not searched), writing
// and starting it if it is not found, then write SISPath and start
// the installer with SISPath as its argument.
type InstallParams struct {
	InstallerName string
	SISPath       string
}

// FindParams configures a find operation: locate the first remote
// object under Root whose name matches Pattern.
type FindParams struct {
	Root    string
	Pattern string
}

func newStage(kind Kind, params any) (stage, error) {
	switch kind {
	case KindShutdown:
		p, ok := params.(ShutdownParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: shutdown requires ShutdownParams")
		}
		return &shutdownStage{params: p}, nil
	case KindRestart:
		p, ok := params.(RestartParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: restart requires RestartParams")
		}
		return &restartStage{params: p}, nil
	case KindRead:
		p, ok := params.(ReadParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: read requires ReadParams")
		}
		return &readStage{params: p}, nil
	case KindWrite:
		p, ok := params.(WriteParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: write requires WriteParams")
		}
		return &writeStage{params: p}, nil
	case KindWriteAndStart:
		p, ok := params.(WriteAndStartParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: write-and-start requires WriteAndStartParams")
		}
		return &writeAndStartStage{params: p}, nil
	case KindBackup:
		p, ok := params.(BackupParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: backup requires BackupParams")
		}
		return &backupStage{params: p}, nil
	case KindBackupList:
		p, ok := params.(backupListParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: backup-list requires internal params")
		}
		return &backupListStage{params: p}, nil
	case KindBackupPrev:
		p, ok := params.(backupPrevParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: backup-prev requires internal params")
		}
		return &backupPrevStage{params: p}, nil
	case KindBackupCopy:
		p, ok := params.(backupCopyParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: backup-copy requires internal params")
		}
		return &backupCopyStage{params: p}, nil
	case KindInstall:
		p, ok := params.(InstallParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: install requires InstallParams")
		}
		return &installStage{params: p}, nil
	case KindFind:
		p, ok := params.(FindParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: find requires FindParams")
		}
		return &findStage{params: p}, nil
	case KindTarComplete:
		p, ok := params.(tarCompleteParams)
		if !ok {
			return nil, perr.New(perr.KindBadParameters, "async: tar-complete requires internal params")
		}
		return &tarCompleteStage{params: p}, nil
	default:
		return nil, perr.New(perr.KindBadParameters, "async: unknown op-kind %v", kind)
	}
}

// entryMeta describes one remote leaf (path, kind, size, modification
// time, attributes). No stage in this package uses it; the backup
// family keeps its per-leaf records in internal/backtree instead.
type entryMeta struct {
	path    string
	isDir   bool
	size    int64
	modTime time.Time
	attr    wire.Attr
}
