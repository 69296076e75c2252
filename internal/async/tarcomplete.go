package async

import (
	"context"
	"os"
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/tarstream"
)

// tarCompleteAction discriminates what one tar-complete op does,
// matching async.c's ASYNC_TAR_COMPLETE status union (TAR_KEEP,
// TAR_SCRAP, and — for this port — TAR_ADD for backup-copy's fresh
// content). A plain discard (no scrap tar configured) is not wrapped
// in its own op: per spec.md §8's recorded open question, "a progress
// stage [is] shown only when copying".
type tarCompleteAction int

const (
	tarCompleteKeep tarCompleteAction = iota
	tarCompleteScrap
	tarCompleteAdd
)

// tarCompleteParams is internal to the backup family: it carries
// already-open tar handles, never serialised or exposed publicly.
type tarCompleteParams struct {
	Action tarCompleteAction

	// Keep/Scrap.
	Reader *tarstream.Reader
	Dest   *tarstream.Writer

	// Add.
	Name    string
	ModTime time.Time
	Size    int64
	SrcPath string
}

// tarCompleteStage performs one tar mutation and reports progress the
// same way any other op-kind does, so backup-prev/backup-copy can
// delegate to it for a uniform status display; the delegating parent
// moves on to its next entry once this child completes.
type tarCompleteStage struct {
	params tarCompleteParams
}

func (s *tarCompleteStage) Initialise(ctx context.Context, op *Op) error {
	op.SetStatus(StatusAddingToTar)
	switch s.params.Action {
	case tarCompleteKeep, tarCompleteScrap:
		if err := s.params.Reader.Copy(s.params.Dest); err != nil {
			return err
		}
	case tarCompleteAdd:
		f, err := os.Open(s.params.SrcPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := s.params.Dest.Add(s.params.Name, s.params.ModTime, s.params.Size, f); err != nil {
			return err
		}
	default:
		return perr.New(perr.KindBadParameters, "tar-complete: unknown action %d", s.params.Action)
	}
	op.SetStatus(StatusSuccess)
	return nil
}

func (s *tarCompleteStage) Process(ctx context.Context, op *Op, msg Message) error { return nil }

func (s *tarCompleteStage) Abort(ctx context.Context, op *Op, msg Message) error {
	op.SetStatus(StatusAborted)
	return nil
}

func (s *tarCompleteStage) PreFinalise(ctx context.Context, op *Op) error  { return nil }
func (s *tarCompleteStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
