package unified

import (
	"context"
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/plog"
	"github.com/thoukydides/riscos-psifs-sub001/internal/timerqueue"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

// OnComplete is the single completion callback shape every submitted
// command reports through exactly once, per spec.md §4.2's contract.
type OnComplete func(token any, reply Reply, err error)

// Options configures the numeric constants spec.md §4.2 names.
type Options struct {
	// StopPollInterval and StopTimeout govern the "stop" sub-state
	// machine: poll PROG_RUNNING every StopPollInterval up to
	// StopTimeout (defaults: 50cs / 2000cs).
	StopPollInterval time.Duration
	StopTimeout      time.Duration
	// StartSettleDelay is inserted after EXEC_PROGRAM before "start"
	// reports success (default: 500cs).
	StartSettleDelay time.Duration
	// MaxChunkERA and MaxChunkSIBO bound a single wire read/write
	// round trip per variant.
	MaxChunkERA  int
	MaxChunkSIBO int
}

// DefaultOptions match the constants named in spec.md §4.2.
func DefaultOptions() Options {
	return Options{
		StopPollInterval: 500 * time.Millisecond,  // 50cs
		StopTimeout:      20 * time.Second,         // 2000cs
		StartSettleDelay: 5 * time.Second,          // 500cs
		MaxChunkERA:      4096,
		MaxChunkSIBO:     2048,
	}
}

// Dispatcher is the unified command dispatcher of spec.md §4.2: it
// owns the two per-variant wire services, the shared scratch buffer,
// and the timer queue that drives its multi-round-trip sub-state
// machines (stop, start).
type Dispatcher struct {
	era, sibo wire.Service
	buf       *Buffer
	timers    *timerqueue.Queue
	opt       Options
	now       func() time.Time
}

// New creates a Dispatcher over the given variant services. Either
// may be nil if that variant's link has never been seen.
func New(era, sibo wire.Service, timers *timerqueue.Queue, opt Options) *Dispatcher {
	return &Dispatcher{era: era, sibo: sibo, buf: NewBuffer(), timers: timers, opt: opt, now: time.Now}
}

// Advance drives due timer-based sub-state machines (stop-polling,
// start-settling). The host's cooperative loop calls it whenever it
// has an opportunity to run outstanding work, per spec.md §5's timer
// model ("delivered exactly like any other sub-request completion").
func (d *Dispatcher) Advance(now time.Time) int {
	return d.timers.Advance(now)
}

// connState is the result of variant selection (spec.md §4.2
// "Variant selection").
type connState int

const (
	connNone connState = iota
	connFull
	connFileOnly
)

func (d *Dispatcher) selectService() (wire.Service, connState, error) {
	if d.era != nil && d.era.Connected() {
		if d.era.HasTaskControl() {
			return d.era, connFull, nil
		}
		return d.era, connFileOnly, nil
	}
	if d.sibo != nil && d.sibo.Connected() {
		if d.sibo.HasTaskControl() {
			return d.sibo, connFull, nil
		}
		return d.sibo, connFileOnly, nil
	}
	return nil, connNone, perr.New(perr.KindNoRemoteService, "no remote service")
}

func needsTaskControl(tag Tag) bool {
	switch tag {
	case TagTasks, TagStop, TagStart, TagDetail:
		return true
	default:
		return false
	}
}

// Submit enqueues one command. It returns a non-nil error only for a
// caller-programming error (a nil onComplete); every other failure,
// including "no remote" and "operation not supported", is reported
// through onComplete exactly once, per spec.md §4.2.
func (d *Dispatcher) Submit(ctx context.Context, cmd Command, token any, onComplete OnComplete) error {
	if onComplete == nil {
		return perr.New(perr.KindBadParameters, "submit: onComplete must not be nil")
	}

	svc, state, err := d.selectService()
	if err != nil {
		onComplete(token, nil, err)
		return nil
	}
	if state == connFileOnly && needsTaskControl(cmd.Tag()) {
		onComplete(token, nil, perr.New(perr.KindRemoteNotSupported, "operation not supported: no task-control service"))
		return nil
	}

	d.dispatch(ctx, svc, cmd, token, onComplete)
	return nil
}

// SubmitBlocking behaves like Submit but blocks the caller until the
// command completes, re-driving pump (ordinarily the lower-layer
// link poll loop) until it does. If escapeAllowed and escape reports
// true before completion, SubmitBlocking aborts the wait with a
// KindEscape error; the command may still complete later and its
// result is then discarded by the caller.
func (d *Dispatcher) SubmitBlocking(ctx context.Context, cmd Command, pump func(), escapeAllowed bool, escape func() bool) (Reply, error) {
	type result struct {
		reply Reply
		err   error
	}
	done := make(chan result, 1)
	if err := d.Submit(ctx, cmd, nil, func(_ any, reply Reply, err error) {
		done <- result{reply, err}
	}); err != nil {
		return nil, err
	}

	for {
		select {
		case r := <-done:
			return r.reply, r.err
		default:
		}
		if escapeAllowed && escape != nil && escape() {
			return nil, perr.New(perr.KindEscape, "escape")
		}
		pump()
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, svc wire.Service, cmd Command, token any, onComplete OnComplete) {
	switch c := cmd.(type) {
	case DriveCmd:
		d.doDrive(ctx, svc, c, token, onComplete)
	case NameCmd:
		d.doName(svc, c, token, onComplete)
	case ListCmd:
		d.doList(ctx, svc, c, token, onComplete)
	case InfoCmd:
		svc.Info(ctx, c.Path, func(info wire.Info, err error) {
			if err != nil {
				onComplete(token, nil, err)
				return
			}
			onComplete(token, InfoReply{Entry: toRISCEntry(leafName(c.Path), info)}, nil)
		})
	case MkdirCmd:
		svc.Mkdir(ctx, c.Path, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagMkdir}, err) })
	case RemoveCmd:
		svc.Remove(ctx, c.Path, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagRemove}, err) })
	case RmdirCmd:
		svc.Rmdir(ctx, c.Path, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagRmdir}, err) })
	case RenameCmd:
		svc.Rename(ctx, c.From, c.To, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagRename}, err) })
	case AccessCmd:
		svc.SetAttr(ctx, c.Path, c.Attr, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagAccess}, err) })
	case StampCmd:
		svc.Stamp(ctx, c.Path, c.Time, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagStamp}, err) })
	case OpenCmd:
		svc.Open(ctx, c.Path, c.Mode, func(h int32, err error) {
			if err != nil {
				onComplete(token, nil, err)
				return
			}
			onComplete(token, OpenReply{Handle: FileHandle{wireHandle: h, variant: svc.Variant()}}, nil)
		})
	case CloseCmd:
		svc.Close(ctx, c.Handle.wireHandle, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagClose}, err) })
	case SeekCmd:
		svc.Seek(ctx, c.Handle.wireHandle, c.Offset, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagSeek}, err) })
	case ReadCmd:
		d.doRead(ctx, svc, c, token, onComplete)
	case WriteCmd:
		d.doWrite(ctx, svc, c, token, onComplete)
	case ZeroCmd:
		d.doZero(ctx, svc, c, token, onComplete)
	case SizeCmd:
		svc.SetExtent(ctx, c.Handle.wireHandle, c.Size, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagSize}, err) })
	case FlushCmd:
		svc.Flush(ctx, c.Handle.wireHandle, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagFlush}, err) })
	case MachineCmd:
		svc.MachineInfo(ctx, func(info wire.MachineInfo, err error) {
			if err != nil {
				onComplete(token, nil, err)
				return
			}
			onComplete(token, MachineReply{Info: info}, nil)
		})
	case TasksCmd:
		d.doTasks(ctx, svc, token, onComplete)
	case DetailCmd:
		svc.CommandLine(ctx, c.TaskID, func(line string, err error) {
			if err != nil {
				onComplete(token, nil, err)
				return
			}
			onComplete(token, DetailReply{Line: line}, nil)
		})
	case StopCmd:
		d.doStop(ctx, svc, c, token, onComplete)
	case StartCmd:
		d.doStart(ctx, svc, c, token, onComplete)
	case PowerCmd:
		svc.Power(ctx, func(_ struct{}, err error) { onComplete(token, EmptyReply{TagPower}, err) })
	case RTimeCmd:
		svc.MachineInfo(ctx, func(info wire.MachineInfo, err error) {
			if err != nil {
				onComplete(token, nil, err)
				return
			}
			onComplete(token, RTimeReply{Time: info.HomeTime}, nil)
		})
	case WTimeCmd:
		d.doWTime(ctx, svc, c, token, onComplete)
	case OwnerCmd:
		// No owner-string collaborator exists on wire.Service (the
		// remote's registered-owner record is outside this layer's
		// concern per spec.md §1's scope boundary); report the empty
		// owner rather than fail the whole command.
		onComplete(token, OwnerReply{Owner: ""}, nil)
	default:
		plog.Errorf(nil, "unified: unrecognised command tag %v", cmd.Tag())
		onComplete(token, nil, perr.New(perr.KindBadParameters, "unrecognised command tag %v", cmd.Tag()))
	}
}

func (d *Dispatcher) doName(svc wire.Service, c NameCmd, token any, onComplete OnComplete) {
	validated, err := d.ValidatePath(svc.Variant(), c.Path)
	if err != nil {
		onComplete(token, nil, err)
		return
	}
	onComplete(token, NameReply{Path: validated}, nil)
}

func leafName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

func toRISCEntry(name string, info wire.Info) RISCEntry {
	filetype := uint16(0xfff)
	if info.UID != 0 {
		filetype = uint16(info.UID & 0xfff)
	}
	load, exec := synthesiseFromInfo(filetype, info)
	return RISCEntry{
		Name:     name,
		IsDir:    info.IsDir,
		Size:     info.Size,
		Load:     load,
		Exec:     exec,
		Attr:     info.Attr,
		FileType: filetype,
		ModTime:  info.ModTime,
	}
}

