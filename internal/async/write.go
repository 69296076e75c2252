package async

import (
	"context"
	"io"
	"os"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

type writeStep int

const (
	writeStepRemoteInfo writeStep = iota
	writeStepUnlock
	writeStepRemove
	writeStepMkdir
	writeStepOpen
	writeStepExtent
	writeStepWriting
	writeStepClosing
	writeStepStamp
	writeStepAttr
)

// writeStage copies LocalPath to RemotePath, symmetric to readStage:
// it reads the local stamp first, inspects any existing remote
// object, clears its way (unlock then remove/overwrite), creates the
// remote object, streams readWriteChunk blocks, then stamps and
// attributes it to match the local original.
type writeStage struct {
	params WriteParams

	step      writeStep
	localInfo os.FileInfo
	local     *os.File
	remoteExists bool
	remoteAttr   wire.Attr
	handle       unified.FileHandle

	remaining int64
	failing   bool
	closed    bool
}

func (s *writeStage) Initialise(ctx context.Context, op *Op) error {
	info, err := os.Stat(s.params.LocalPath)
	if err != nil {
		return err
	}
	s.localInfo = info
	op.SetStatus(StatusOpeningFile)
	op.SetDetail("checking remote " + s.params.RemotePath)
	s.step = writeStepRemoteInfo
	return op.Submit(ctx, unified.InfoCmd{Path: s.params.RemotePath})
}

func (s *writeStage) Process(ctx context.Context, op *Op, msg Message) error {
	if msg.Err != nil {
		if s.step == writeStepRemoteInfo && perr.Is(msg.Err, perr.KindBadName) {
			// No existing remote object: nothing to unlock or remove.
			s.remoteExists = false
			return s.createRemote(ctx, op)
		}
		if s.failing {
			return msg.Err
		}
		return s.fail(ctx, op, msg.Err)
	}

	switch s.step {
	case writeStepRemoteInfo:
		reply, ok := msg.Reply.(unified.InfoReply)
		if !ok {
			return perr.New(perr.KindBadState, "write: unexpected reply %T", msg.Reply)
		}
		s.remoteExists = true
		s.remoteAttr = reply.Entry.Attr
		if s.remoteAttr&wire.AttrLocked != 0 {
			s.step = writeStepUnlock
			return op.Submit(ctx, unified.AccessCmd{Path: s.params.RemotePath, Attr: s.remoteAttr &^ wire.AttrLocked})
		}
		return s.removeRemote(ctx, op)

	case writeStepUnlock:
		return s.removeRemote(ctx, op)

	case writeStepRemove:
		return s.createRemote(ctx, op)

	case writeStepMkdir:
		op.SetStatus(StatusSuccess)
		return nil

	case writeStepOpen:
		reply, ok := msg.Reply.(unified.OpenReply)
		if !ok {
			return perr.New(perr.KindBadState, "write: unexpected reply %T", msg.Reply)
		}
		s.handle = reply.Handle
		s.step = writeStepExtent
		return op.Submit(ctx, unified.SizeCmd{Handle: s.handle, Size: s.localInfo.Size()})

	case writeStepExtent:
		f, err := os.Open(s.params.LocalPath)
		if err != nil {
			return s.fail(ctx, op, err)
		}
		s.local = f
		s.remaining = s.localInfo.Size()
		op.SetStatus(StatusWritingFile)
		s.step = writeStepWriting
		return s.writeMore(ctx, op)

	case writeStepWriting:
		reply, ok := msg.Reply.(unified.WriteReply)
		if !ok {
			return perr.New(perr.KindBadState, "write: unexpected reply %T", msg.Reply)
		}
		s.remaining -= int64(reply.N)
		if s.remaining <= 0 {
			s.local.Close()
			s.local = nil
			s.closed = true
			s.step = writeStepClosing
			return op.Submit(ctx, unified.CloseCmd{Handle: s.handle})
		}
		return s.writeMore(ctx, op)

	case writeStepClosing:
		s.step = writeStepStamp
		return op.Submit(ctx, unified.StampCmd{Path: s.params.RemotePath, Time: s.localInfo.ModTime()})

	case writeStepStamp:
		attr := wire.AttrRead
		if s.localInfo.Mode()&0o200 != 0 {
			attr |= wire.AttrWrite
		}
		s.step = writeStepAttr
		return op.Submit(ctx, unified.AccessCmd{Path: s.params.RemotePath, Attr: attr})

	case writeStepAttr:
		op.SetStatus(StatusSuccess)
		return nil

	default:
		return perr.New(perr.KindBadState, "write: unreachable step %d", s.step)
	}
}

func (s *writeStage) removeRemote(ctx context.Context, op *Op) error {
	if !s.remoteExists {
		return s.createRemote(ctx, op)
	}
	s.step = writeStepRemove
	if s.localInfo.IsDir() {
		return op.Submit(ctx, unified.RmdirCmd{Path: s.params.RemotePath})
	}
	return op.Submit(ctx, unified.RemoveCmd{Path: s.params.RemotePath})
}

func (s *writeStage) createRemote(ctx context.Context, op *Op) error {
	op.SetDetail("writing " + s.params.RemotePath)
	if s.localInfo.IsDir() {
		s.step = writeStepMkdir
		return op.Submit(ctx, unified.MkdirCmd{Path: s.params.RemotePath})
	}
	s.step = writeStepOpen
	return op.Submit(ctx, unified.OpenCmd{Path: s.params.RemotePath, Mode: wire.ModeOut})
}

func (s *writeStage) writeMore(ctx context.Context, op *Op) error {
	length := readWriteChunk
	if int64(length) > s.remaining {
		length = int(s.remaining)
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(s.local, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return s.fail(ctx, op, err)
	}
	op.Mark(s.localInfo.Size()-s.remaining, s.remaining, readWriteChunk)
	return op.Submit(ctx, unified.WriteCmd{Handle: s.handle, Data: buf[:n]})
}

func (s *writeStage) fail(ctx context.Context, op *Op, cause error) error {
	s.failing = true
	if s.local != nil {
		s.local.Close()
		s.local = nil
	}
	if (s.step == writeStepOpen || s.step == writeStepExtent || s.step == writeStepWriting) && !s.closed {
		s.closed = true
		op.storedErr = cause
		s.step = writeStepClosing
		return op.Submit(ctx, unified.CloseCmd{Handle: s.handle})
	}
	return cause
}

func (s *writeStage) Abort(ctx context.Context, op *Op, msg Message) error {
	if reply, ok := msg.Reply.(unified.OpenReply); ok && s.step == writeStepOpen {
		s.handle = reply.Handle
		s.step = writeStepExtent
	}
	if s.local != nil {
		s.local.Close()
		s.local = nil
	}
	hasHandle := s.step == writeStepExtent || s.step == writeStepWriting || s.step == writeStepClosing
	if !hasHandle || s.closed {
		op.SetStatus(StatusAborted)
		return nil
	}
	s.closed = true
	return op.Submit(ctx, unified.CloseCmd{Handle: s.handle})
}

func (s *writeStage) PreFinalise(ctx context.Context, op *Op) error  { return nil }
func (s *writeStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
