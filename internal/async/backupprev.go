package async

import (
	"context"

	"github.com/thoukydides/riscos-psifs-sub001/internal/backtree"
	"github.com/thoukydides/riscos-psifs-sub001/internal/tarstream"
)

// backupPrevParams is internal to the backup family. Dest is the new
// tar's still-open Writer, owned by the parent backupStage and shared
// with backup-copy afterwards; ScrapTarPath, if non-empty, names a
// scratch tar this stage opens and closes itself.
type backupPrevParams struct {
	PrevTarPath  string
	ScrapTarPath string
	Dest         *tarstream.Writer
	Tree         *backtree.Tree
}

// backupPrevStage walks the previous backup's tar entry by entry,
// comparing each against the live tree (grounded on async.c's
// async_process_backup_prev):
//
//   - identical (backtree.StatusSame): forwarded straight into the
//     new tar and marked ignored, so backup-copy will not re-fetch it.
//   - newer on the live side (backtree.StatusNewer): prompts for a
//     response unless the operation is already quiet, in which case
//     it is treated the same as "copy".
//   - anything else (older, or missing from the live tree): copied to
//     the scrap tar if one was configured, else discarded outright, and
//     not marked ignored. An older entry is thus left for backup-copy
//     to source fresh; one missing from the live tree is not in the
//     tree at all, so backup-copy never fetches it.
//
// A plain discard has no progress stage of its own (async.c leaves
// that path uninstrumented); forwarding into the new or scrap tar
// delegates to a tar-complete child so its progress is shown the same
// way backup-copy's additions are.
type backupPrevStage struct {
	params backupPrevParams

	reader      *tarstream.Reader
	scrap       *tarstream.Writer
	quiet       bool
	curName     string
	pendingWait bool // awaiting an external newer response
}

func (s *backupPrevStage) Initialise(ctx context.Context, op *Op) error {
	if s.params.PrevTarPath == "" {
		op.SetStatus(StatusSuccess)
		return nil
	}
	r, err := tarstream.OpenIn(s.params.PrevTarPath)
	if err != nil {
		return err
	}
	s.reader = r
	if s.params.ScrapTarPath != "" {
		w, err := tarstream.OpenOut(s.params.ScrapTarPath)
		if err != nil {
			return err
		}
		s.scrap = w
	}
	op.SetStatus(StatusAddingToTar)
	return s.run(ctx, op)
}

func (s *backupPrevStage) Process(ctx context.Context, op *Op, msg Message) error {
	if msg.ChildDone {
		if _, err := op.ConsumeChild(); err != nil {
			return err
		}
		return s.run(ctx, op)
	}
	if msg.Err != nil {
		return msg.Err
	}
	return s.run(ctx, op)
}

// run advances through entries until the previous tar is exhausted or
// a prompt/child delegation suspends it.
func (s *backupPrevStage) run(ctx context.Context, op *Op) error {
	for {
		if s.pendingWait {
			resp, ok := op.TakeResponse()
			if !ok {
				return nil
			}
			s.pendingWait = false
			if resp == ResponseQuiet {
				s.quiet = true
				op.SetQuiet(true)
			}
			if resp == ResponseSkip {
				return s.keep(ctx, op)
			}
			if s.scrap != nil {
				return s.scrapToTar(ctx, op)
			}
			if err := s.reader.Skip(); err != nil {
				return err
			}
			continue
		}

		info, ok, err := s.reader.Info()
		if err != nil {
			return err
		}
		if !ok {
			op.SetStatus(StatusSuccess)
			return nil
		}
		s.curName = info.Name
		op.SetDetail(info.Name)

		switch s.params.Tree.Check(info.Name, info.ModTime, info.Size) {
		case backtree.StatusSame:
			return s.keep(ctx, op)
		case backtree.StatusNewer:
			if s.quiet {
				if s.scrap != nil {
					return s.scrapToTar(ctx, op)
				}
				if err := s.reader.Skip(); err != nil {
					return err
				}
				continue
			}
			op.SetStatus(StatusWaitNewerResponse)
			s.pendingWait = true
			return nil
		default: // older, or missing from the live tree entirely
			if s.scrap != nil {
				return s.scrapToTar(ctx, op)
			}
			if err := s.reader.Skip(); err != nil {
				return err
			}
		}
	}
}

// keep forwards the current entry straight into the new tar and
// marks it ignored, via a delegated tar-complete child.
func (s *backupPrevStage) keep(ctx context.Context, op *Op) error {
	s.params.Tree.Ignore(s.curName)
	op.SetDetail("keeping " + s.curName)
	return op.Delegate(KindTarComplete, tarCompleteParams{
		Action: tarCompleteKeep,
		Reader: s.reader,
		Dest:   s.params.Dest,
	})
}

// scrapToTar forwards the current entry into the scrap tar via a
// delegated tar-complete child, the same way keep forwards into the
// new tar. A plain discard (no scrap tar configured) instead just
// skips the entry in place, with no progress stage of its own.
func (s *backupPrevStage) scrapToTar(ctx context.Context, op *Op) error {
	op.SetDetail("scrapping " + s.curName)
	return op.Delegate(KindTarComplete, tarCompleteParams{
		Action: tarCompleteScrap,
		Reader: s.reader,
		Dest:   s.scrap,
	})
}

// Abort defers to a delegated keep/scrap child the same way backup's
// own Abort defers to its phase children, so the current tar-complete
// op finishes writing before this one declares itself aborted.
func (s *backupPrevStage) Abort(ctx context.Context, op *Op, msg Message) error {
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

// PreFinalise closes the previous tar's reader and the scrap writer
// (if one was opened), matching async.c's ASYNC_PRE_FINALISE which
// always closes scrap_tar but never wipes it — the scrap file's
// lifetime is the parent backupStage's concern.
func (s *backupPrevStage) PreFinalise(ctx context.Context, op *Op) error {
	var err error
	if s.reader != nil {
		if e := s.reader.Close(); e != nil {
			err = e
		}
	}
	if s.scrap != nil {
		if e := s.scrap.Close(); e != nil {
			err = e
		}
	}
	return err
}

func (s *backupPrevStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
