package async

import (
	"context"

	"github.com/thoukydides/riscos-psifs-sub001/internal/backtree"
	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
)

// backupListParams is internal to the backup family: Tree is the
// index the parent backupStage owns and later hands to backup-prev
// and backup-copy.
type backupListParams struct {
	Root string
	Tree *backtree.Tree
}

// backupListStage walks the remote tree breadth-first, recording
// every file leaf (not directories) into Tree.
type backupListStage struct {
	params backupListParams

	queue   []string
	lastDir string
	count   int64

	aborting bool // outstanding ListCmd reply still owed before teardown
}

func (s *backupListStage) Initialise(ctx context.Context, op *Op) error {
	s.queue = []string{s.params.Root}
	op.SetStatus(StatusEnumeratingTasks)
	return s.next(ctx, op)
}

func (s *backupListStage) next(ctx context.Context, op *Op) error {
	if len(s.queue) == 0 {
		op.SetStatus(StatusSuccess)
		return nil
	}
	dir := s.queue[0]
	s.queue = s.queue[1:]
	s.lastDir = dir
	op.SetDetail(dir)
	return op.Submit(ctx, unified.ListCmd{Path: dir})
}

func (s *backupListStage) Process(ctx context.Context, op *Op, msg Message) error {
	if msg.Err != nil {
		return msg.Err
	}
	reply, ok := msg.Reply.(unified.ListReply)
	if !ok {
		return perr.New(perr.KindBadState, "backup-list: unexpected reply %T", msg.Reply)
	}
	for _, e := range reply.Entries {
		full := joinRemote(s.lastDir, e.Name)
		if e.IsDir {
			s.queue = append(s.queue, full)
			continue
		}
		s.params.Tree.Add(full, e.ModTime, e.Size)
		s.count++
	}
	op.Mark(s.count, int64(len(s.queue)), 1)
	return s.next(ctx, op)
}

// Abort must not declare itself aborted while the ListCmd already
// submitted for s.lastDir is still outstanding: the reply would
// arrive after this op is destroyed and re-enter a freed op (spec.md
// §4.1's ABORT contract). The first call just remembers that; the
// follow-up call the reply's arrival triggers actually finishes.
func (s *backupListStage) Abort(ctx context.Context, op *Op, msg Message) error {
	if !s.aborting {
		s.aborting = true
		return nil
	}
	op.SetStatus(StatusAborted)
	return nil
}

func (s *backupListStage) PreFinalise(ctx context.Context, op *Op) error  { return nil }
func (s *backupListStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
