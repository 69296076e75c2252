package async

import (
	"context"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
)

// writeAndStartStage delegates to write, then starts the written
// file (or a nominated executable with the file as its argument).
// The unified "start" sub-state machine already settles for a fixed
// delay before reporting success, so this stage needs no delay of
// its own (spec.md §4.1 "write-and-start").
type writeAndStartStage struct {
	params WriteAndStartParams

	started bool
}

func (s *writeAndStartStage) Initialise(ctx context.Context, op *Op) error {
	op.SetDetail("writing " + s.params.RemotePath)
	return op.Delegate(KindWrite, WriteParams{LocalPath: s.params.LocalPath, RemotePath: s.params.RemotePath})
}

func (s *writeAndStartStage) Process(ctx context.Context, op *Op, msg Message) error {
	if !s.started {
		if !msg.ChildDone {
			return perr.New(perr.KindBadState, "write-and-start: unexpected message before child completion")
		}
		if _, err := op.ConsumeChild(); err != nil {
			return err
		}
		if msg.ChildErr != nil {
			return msg.ChildErr
		}
		s.started = true
		path, args := s.params.RemotePath, ""
		if s.params.Exec != "" {
			path, args = s.params.Exec, s.params.RemotePath
		}
		op.SetDetail("starting " + path)
		return op.Submit(ctx, unified.StartCmd{Path: path, Args: args})
	}
	if msg.Err != nil {
		return msg.Err
	}
	op.SetStatus(StatusSuccess)
	return nil
}

func (s *writeAndStartStage) Abort(ctx context.Context, op *Op, msg Message) error {
	op.SetStatus(StatusAborted)
	return nil
}

func (s *writeAndStartStage) PreFinalise(ctx context.Context, op *Op) error  { return nil }
func (s *writeAndStartStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
