package async

import (
	"context"
	"os"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

// readWriteChunk is the streaming block size spec.md §4.1 names for
// read/write ("loop read-4096/write-4096 until EOF").
const readWriteChunk = 4096

type readStep int

const (
	readStepInfo readStep = iota
	readStepOpen
	readStepReading
	readStepClosing
)

// readStage copies one remote object to LocalPath: a directory is
// created locally; a file is streamed in readWriteChunk blocks and
// stamped with the remote's modification time on success.
type readStage struct {
	params ReadParams

	step   readStep
	entry  unified.RISCEntry
	handle unified.FileHandle
	local  *os.File

	remaining int64
	failing   bool
	closed    bool
}

func (s *readStage) Initialise(ctx context.Context, op *Op) error {
	op.SetStatus(StatusOpeningFile)
	op.SetDetail("reading info for " + s.params.RemotePath)
	s.step = readStepInfo
	return op.Submit(ctx, unified.InfoCmd{Path: s.params.RemotePath})
}

func (s *readStage) Process(ctx context.Context, op *Op, msg Message) error {
	if msg.Err != nil {
		if s.failing {
			return msg.Err
		}
		return s.fail(ctx, op, msg.Err)
	}

	switch s.step {
	case readStepInfo:
		reply, ok := msg.Reply.(unified.InfoReply)
		if !ok {
			return perr.New(perr.KindBadState, "read: unexpected reply %T", msg.Reply)
		}
		s.entry = reply.Entry
		if s.entry.IsDir {
			if err := os.MkdirAll(s.params.LocalPath, 0o777); err != nil {
				return err
			}
			op.SetStatus(StatusSuccess)
			return nil
		}
		f, err := os.Create(s.params.LocalPath)
		if err != nil {
			return err
		}
		s.local = f
		s.remaining = s.entry.Size
		op.SetStatus(StatusReadingFile)
		op.SetDetail("opening remote " + s.params.RemotePath)
		s.step = readStepOpen
		return op.Submit(ctx, unified.OpenCmd{Path: s.params.RemotePath, Mode: wire.ModeIn})

	case readStepOpen:
		reply, ok := msg.Reply.(unified.OpenReply)
		if !ok {
			return perr.New(perr.KindBadState, "read: unexpected reply %T", msg.Reply)
		}
		s.handle = reply.Handle
		s.step = readStepReading
		return s.readMore(ctx, op)

	case readStepReading:
		reply, ok := msg.Reply.(unified.ReadReply)
		if !ok {
			return perr.New(perr.KindBadState, "read: unexpected reply %T", msg.Reply)
		}
		if len(reply.Data) > 0 {
			if _, err := s.local.Write(reply.Data); err != nil {
				return s.fail(ctx, op, err)
			}
			s.remaining -= int64(len(reply.Data))
		}
		if s.remaining <= 0 || len(reply.Data) == 0 {
			s.step = readStepClosing
			return op.Submit(ctx, unified.CloseCmd{Handle: s.handle})
		}
		return s.readMore(ctx, op)

	case readStepClosing:
		s.closed = true
		if err := s.local.Close(); err != nil {
			return err
		}
		s.local = nil
		// Stamping the copy with the remote's modification time is a
		// plain local filesystem operation, not a wire round trip —
		// unlike writeStage's StampCmd, which stamps the remote object
		// and so does go through the dispatcher.
		if err := os.Chtimes(s.params.LocalPath, s.entry.ModTime, s.entry.ModTime); err != nil {
			return err
		}
		op.SetStatus(StatusSuccess)
		return nil

	default:
		return perr.New(perr.KindBadState, "read: unreachable step %d", s.step)
	}
}

func (s *readStage) readMore(ctx context.Context, op *Op) error {
	length := readWriteChunk
	if int64(length) > s.remaining {
		length = int(s.remaining)
	}
	op.Mark(s.entry.Size-s.remaining, s.remaining, readWriteChunk)
	return op.Submit(ctx, unified.ReadCmd{Handle: s.handle, Length: length})
}

// fail records the triggering error, closes the remote handle (if
// open) and removes the partial local output, re-raising the error
// once teardown completes (spec.md §4.1 "read": "any failure stores
// the error, closes the remote handle, then re-raises").
func (s *readStage) fail(ctx context.Context, op *Op, cause error) error {
	s.failing = true
	if s.local != nil {
		s.local.Close()
		os.Remove(s.params.LocalPath)
		s.local = nil
	}
	if (s.step == readStepOpen || s.step == readStepReading) && !s.closed {
		s.closed = true
		op.storedErr = cause
		s.step = readStepClosing
		return op.Submit(ctx, unified.CloseCmd{Handle: s.handle})
	}
	return cause
}

func (s *readStage) Abort(ctx context.Context, op *Op, msg Message) error {
	if reply, ok := msg.Reply.(unified.OpenReply); ok && s.step == readStepOpen {
		// The remote open we issued before the abort landed now needs
		// closing in its turn.
		s.handle = reply.Handle
		s.step = readStepReading
	}
	if s.local != nil {
		s.local.Close()
		os.Remove(s.params.LocalPath)
		s.local = nil
	}
	hasHandle := s.step == readStepReading || s.step == readStepClosing
	if !hasHandle || s.closed {
		op.SetStatus(StatusAborted)
		return nil
	}
	s.closed = true
	return op.Submit(ctx, unified.CloseCmd{Handle: s.handle})
}

func (s *readStage) PreFinalise(ctx context.Context, op *Op) error  { return nil }
func (s *readStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
