package async

import (
	"context"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wildcard"
)

// findStage locates the first remote object under Root whose name
// matches Pattern, walking the tree breadth-first.
type findStage struct {
	params FindParams

	queue   []string
	lastDir string
	found   string
}

func (s *findStage) Initialise(ctx context.Context, op *Op) error {
	s.queue = []string{s.params.Root}
	op.SetDetail("searching " + s.params.Root)
	return s.next(ctx, op)
}

func (s *findStage) next(ctx context.Context, op *Op) error {
	if len(s.queue) == 0 {
		return perr.New(perr.KindBadName, "find: no match for %q under %q", s.params.Pattern, s.params.Root)
	}
	dir := s.queue[0]
	s.queue = s.queue[1:]
	s.lastDir = dir
	return op.Submit(ctx, unified.ListCmd{Path: dir})
}

func (s *findStage) Process(ctx context.Context, op *Op, msg Message) error {
	if msg.Err != nil {
		return msg.Err
	}
	reply, ok := msg.Reply.(unified.ListReply)
	if !ok {
		return perr.New(perr.KindBadState, "find: unexpected reply %T", msg.Reply)
	}
	dir := s.lastDir
	for _, e := range reply.Entries {
		full := joinRemote(dir, e.Name)
		if wildcard.Match(s.params.Pattern, e.Name) {
			s.found = full
			op.SetResult(full)
			op.SetStatus(StatusSuccess)
			op.SetDetail(full)
			return nil
		}
		if e.IsDir {
			s.queue = append(s.queue, full)
		}
	}
	return s.next(ctx, op)
}

func joinRemote(dir, name string) string {
	if dir == "" || dir == `\` {
		return `\` + name
	}
	return dir + `\` + name
}

func (s *findStage) Abort(ctx context.Context, op *Op, msg Message) error {
	op.SetStatus(StatusAborted)
	return nil
}

func (s *findStage) PreFinalise(ctx context.Context, op *Op) error  { return nil }
func (s *findStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
