package async

import (
	"context"
	"os"

	"github.com/thoukydides/riscos-psifs-sub001/internal/backtree"
	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/tarstream"
)

type backupStep int

const (
	backupStepList backupStep = iota
	backupStepPrev
	backupStepCopy
)

// backupStage is the composite driving the three-phase backup
// described in spec.md §4.1 "backup": build a live-tree index
// (backup-list), diff it against the previous backup's tar
// (backup-prev, forwarding unchanged entries straight into the new
// tar), then fetch everything still unaccounted for fresh from the
// remote (backup-copy). It owns the new tar's Writer across both
// child phases, since archive/tar has no append-after-close.
type backupStage struct {
	params BackupParams

	step       backupStep
	tree       *backtree.Tree
	dest       *tarstream.Writer
	scrapPath  string
	destClosed bool
}

func (s *backupStage) Initialise(ctx context.Context, op *Op) error {
	s.tree = backtree.New()
	dest, err := tarstream.OpenOut(s.params.NewTarPath)
	if err != nil {
		return err
	}
	s.dest = dest
	op.SetDetail("listing " + s.params.RemoteRoot)
	s.step = backupStepList
	return op.Delegate(KindBackupList, backupListParams{Root: s.params.RemoteRoot, Tree: s.tree})
}

func (s *backupStage) Process(ctx context.Context, op *Op, msg Message) error {
	if !msg.ChildDone {
		return perr.New(perr.KindBadState, "backup: unexpected message outside child completion")
	}

	switch s.step {
	case backupStepList:
		status, err := op.ConsumeChild()
		if status != StatusSuccess {
			if err != nil {
				return err
			}
			return perr.New(perr.KindBadState, "backup: listing the remote tree failed")
		}
		if s.params.PrevTarPath != "" {
			if f, err := os.CreateTemp("", "psifs-scrap-*.tar"); err == nil {
				s.scrapPath = f.Name()
				f.Close()
				os.Remove(s.scrapPath)
			}
		}
		s.step = backupStepPrev
		op.SetDetail("comparing against previous backup")
		return op.Delegate(KindBackupPrev, backupPrevParams{
			PrevTarPath:  s.params.PrevTarPath,
			ScrapTarPath: s.scrapPath,
			Dest:         s.dest,
			Tree:         s.tree,
		})

	case backupStepPrev:
		status, err := op.ConsumeChild()
		if status != StatusSuccess {
			if err != nil {
				return err
			}
			return perr.New(perr.KindBadState, "backup: comparing against the previous backup failed")
		}
		s.step = backupStepCopy
		op.SetDetail("copying changed files")
		return op.Delegate(KindBackupCopy, backupCopyParams{Dest: s.dest, Tree: s.tree})

	case backupStepCopy:
		status, err := op.ConsumeChild()
		if status != StatusSuccess {
			if err != nil {
				return err
			}
			return perr.New(perr.KindBadState, "backup: copying changed files failed")
		}
		op.SetStatus(StatusSuccess)
		return nil

	default:
		return perr.New(perr.KindBadState, "backup: unreachable step %d", s.step)
	}
}

// Abort must not declare itself aborted while its current phase child
// still owns the shared dest Writer: PreFinalise closes dest
// unconditionally, and a live child still writing to it would corrupt
// the archive, then call back into this op after it has already been
// destroyed (spec.md §4.1's ABORT contract: "not destroyed until that
// teardown completes"). So the first call here only drives the child
// to finish tearing down itself; only the follow-up ChildDone message
// actually transitions to StatusAborted.
func (s *backupStage) Abort(ctx context.Context, op *Op, msg Message) error {
	if msg.ChildDone {
		_, _ = op.ConsumeChild()
		op.SetStatus(StatusAborted)
		return nil
	}
	if child := op.Child(); child != nil {
		op.engine.schedule(child, Message{})
		return nil
	}
	op.SetStatus(StatusAborted)
	return nil
}

// PreFinalise closes the new tar regardless of outcome, and discards
// it (along with any scrap file left over from backup-prev) unless
// the whole operation succeeded.
func (s *backupStage) PreFinalise(ctx context.Context, op *Op) error {
	var err error
	if s.dest != nil && !s.destClosed {
		err = s.dest.Close()
		s.destClosed = true
	}
	if op.status != StatusSuccess {
		os.Remove(s.params.NewTarPath)
	}
	if s.scrapPath != "" {
		os.Remove(s.scrapPath)
	}
	return err
}

func (s *backupStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
