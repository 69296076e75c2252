package async

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
)

// restartEntry is one "name args" pair read from a shutdown log.
type restartEntry struct {
	name string
	args string
}

// restartStage replays a shutdown log, re-launching each recorded
// task. A launch failure waits for a client response (retry, skip, or
// quiet — which also skips every later failure silently).
type restartStage struct {
	params  RestartParams
	entries []restartEntry
	idx     int
}

func (s *restartStage) Initialise(ctx context.Context, op *Op) error {
	f, err := os.Open(s.params.LogPath)
	if err != nil {
		if os.IsNotExist(err) {
			op.SetStatus(StatusSuccess)
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		name, args, _ := strings.Cut(line, " ")
		s.entries = append(s.entries, restartEntry{name: name, args: args})
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return s.advance(ctx, op)
}

func (s *restartStage) Process(ctx context.Context, op *Op, msg Message) error {
	if op.status == StatusWaitRestartResponse {
		resp, ok := op.TakeResponse()
		if !ok {
			return nil
		}
		op.SetStatus(StatusBusy)
		switch resp {
		case ResponseRetry:
			return s.launch(ctx, op)
		case ResponseQuiet:
			op.SetQuiet(true)
		}
		s.idx++
		return s.advance(ctx, op)
	}

	switch reply := msg.Reply.(type) {
	case unified.StartReply:
		_ = reply
		s.idx++
		return s.advance(ctx, op)
	default:
		if msg.Err == nil {
			return perr.New(perr.KindBadState, "restart: unexpected reply %T", reply)
		}
		if op.Quiet() {
			s.idx++
			return s.advance(ctx, op)
		}
		op.SetStatus(StatusWaitRestartResponse)
		op.SetDetail(fmt.Sprintf("failed to restart %s: %v", s.entries[s.idx].name, msg.Err))
		return nil
	}
}

func (s *restartStage) advance(ctx context.Context, op *Op) error {
	if s.idx >= len(s.entries) {
		op.SetStatus(StatusSuccess)
		return nil
	}
	op.Mark(int64(s.idx), int64(len(s.entries)-s.idx), 1)
	return s.launch(ctx, op)
}

func (s *restartStage) launch(ctx context.Context, op *Op) error {
	e := s.entries[s.idx]
	op.SetDetail(fmt.Sprintf("restarting %s", e.name))
	return op.Submit(ctx, unified.StartCmd{Path: e.name, Args: e.args})
}

func (s *restartStage) Abort(ctx context.Context, op *Op, msg Message) error {
	op.SetStatus(StatusAborted)
	return nil
}

func (s *restartStage) PreFinalise(ctx context.Context, op *Op) error { return nil }
func (s *restartStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
