package async

import (
	"context"
	"fmt"
	"os"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wildcard"
)

// shutdownStage enumerates the remote's running tasks and stops every
// one whose argument string matches Pattern, logging "name args\n" to
// LogPath for restart to replay later.
type shutdownStage struct {
	params ShutdownParams

	logFile *os.File
	tasks   []unified.TaskReply
	idx     int
}

func (s *shutdownStage) Initialise(ctx context.Context, op *Op) error {
	op.SetStatus(StatusEnumeratingTasks)
	op.SetDetail("enumerating tasks")
	return op.Submit(ctx, unified.TasksCmd{})
}

func (s *shutdownStage) Process(ctx context.Context, op *Op, msg Message) error {
	if msg.Err != nil {
		return msg.Err
	}
	switch reply := msg.Reply.(type) {
	case unified.TasksReply:
		s.tasks = reply.Tasks
		f, err := os.Create(s.params.LogPath)
		if err != nil {
			return err
		}
		s.logFile = f
		return s.advance(ctx, op)

	case unified.DetailReply:
		task := s.tasks[s.idx]
		if wildcard.Match(s.params.Pattern, reply.Line) {
			if _, err := fmt.Fprintf(s.logFile, "%s %s\n", task.Name, reply.Line); err != nil {
				return err
			}
			return op.Submit(ctx, unified.StopCmd{TaskID: task.ID})
		}
		s.idx++
		return s.advance(ctx, op)

	case unified.EmptyReply:
		s.idx++
		return s.advance(ctx, op)

	default:
		return perr.New(perr.KindBadState, "shutdown: unexpected reply %T", reply)
	}
}

func (s *shutdownStage) advance(ctx context.Context, op *Op) error {
	if s.idx >= len(s.tasks) {
		op.SetStatus(StatusSuccess)
		return s.logFile.Close()
	}
	task := s.tasks[s.idx]
	op.SetStatus(StatusReadingCommandLine)
	op.SetDetail(fmt.Sprintf("checking %s", task.Name))
	op.Mark(int64(s.idx), int64(len(s.tasks)-s.idx), 1)
	return op.Submit(ctx, unified.DetailCmd{TaskID: task.ID})
}

func (s *shutdownStage) Abort(ctx context.Context, op *Op, msg Message) error {
	s.closeAndWipe()
	op.SetStatus(StatusAborted)
	return nil
}

func (s *shutdownStage) PreFinalise(ctx context.Context, op *Op) error {
	if op.status == StatusError {
		s.closeAndWipe()
	}
	return nil
}

func (s *shutdownStage) PostFinalise(ctx context.Context, op *Op) error { return nil }

func (s *shutdownStage) closeAndWipe() {
	if s.logFile != nil {
		s.logFile.Close()
		s.logFile = nil
	}
	os.Remove(s.params.LogPath)
}
