package async

import (
	"context"
	"os"

	"github.com/thoukydides/riscos-psifs-sub001/internal/backtree"
	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/tarstream"
)

// backupCopyParams is internal to the backup family: Tree has already
// had every entry backup-prev could forward marked ignored, so
// Enumerate lists exactly the paths that need fetching fresh.
type backupCopyParams struct {
	Dest *tarstream.Writer
	Tree *backtree.Tree
}

// backupCopyStage reads each remaining live path into a temporary
// local file, one at a time, then adds it to the new tar via a
// delegated tar-complete child.
type backupCopyStage struct {
	params backupCopyParams

	paths     []string
	idx       int
	tempPath  string // set while a read child is in flight
	addedTemp string // set while a tar-complete (add) child is in flight
}

func (s *backupCopyStage) Initialise(ctx context.Context, op *Op) error {
	s.paths = s.params.Tree.Enumerate()
	op.SetStatus(StatusAddingToTar)
	return s.advance(ctx, op)
}

func (s *backupCopyStage) advance(ctx context.Context, op *Op) error {
	if s.idx >= len(s.paths) {
		op.SetStatus(StatusSuccess)
		return nil
	}
	path := s.paths[s.idx]
	op.SetDetail(path)
	op.Mark(int64(s.idx), int64(len(s.paths)-s.idx), 1)

	f, err := os.CreateTemp("", "psifs-copy-*")
	if err != nil {
		return err
	}
	s.tempPath = f.Name()
	f.Close()
	os.Remove(s.tempPath)

	return op.Delegate(KindRead, ReadParams{RemotePath: path, LocalPath: s.tempPath})
}

func (s *backupCopyStage) Process(ctx context.Context, op *Op, msg Message) error {
	if !msg.ChildDone {
		return perr.New(perr.KindBadState, "backup-copy: unexpected message outside child completion")
	}

	switch {
	case s.tempPath != "":
		status, err := op.ConsumeChild()
		path := s.paths[s.idx]
		temp := s.tempPath
		s.tempPath = ""
		if status != StatusSuccess {
			os.Remove(temp)
			if err != nil {
				return err
			}
			return perr.New(perr.KindBadState, "backup-copy: failed to read %s", path)
		}

		info, err := os.Stat(temp)
		if err != nil {
			os.Remove(temp)
			return err
		}

		s.addedTemp = temp
		op.SetDetail("adding " + path)
		return op.Delegate(KindTarComplete, tarCompleteParams{
			Action:  tarCompleteAdd,
			Dest:    s.params.Dest,
			Name:    path,
			ModTime: info.ModTime(),
			Size:    info.Size(),
			SrcPath: temp,
		})

	default:
		if s.addedTemp != "" {
			os.Remove(s.addedTemp)
			s.addedTemp = ""
		}
		if _, err := op.ConsumeChild(); err != nil {
			return err
		}
		s.idx++
		return s.advance(ctx, op)
	}
}

// Abort defers to its read/tar-complete child the same way backup's
// own Abort defers to its phase children: the child still owns a
// handle or a temp file until its teardown completes, so this op only
// declares itself aborted once the ChildDone message confirms that.
func (s *backupCopyStage) Abort(ctx context.Context, op *Op, msg Message) error {
	if msg.ChildDone {
		_, _ = op.ConsumeChild()
		if s.tempPath != "" {
			os.Remove(s.tempPath)
			s.tempPath = ""
		}
		if s.addedTemp != "" {
			os.Remove(s.addedTemp)
			s.addedTemp = ""
		}
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

func (s *backupCopyStage) PreFinalise(ctx context.Context, op *Op) error  { return nil }
func (s *backupCopyStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
