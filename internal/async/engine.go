package async

import (
	"context"
	"sync"
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/frac"
	"github.com/thoukydides/riscos-psifs-sub001/internal/handlestore"
	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/plog"
	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
)

// Handle identifies a live operation, persisted across process
// restarts so a handle is never reused (spec.md §3 invariant 6).
type Handle uint32

// InvalidHandle is the reserved value Start never returns.
const InvalidHandle Handle = 0

// Idle is the external idle-state tracker the scheduler brackets
// every operation's active lifetime with (spec.md §4.1 step 4's
// idle_start/idle_end), e.g. to suppress a screensaver or background
// cache sweep while remote work is outstanding.
type Idle interface {
	Start()
	End()
}

// NoopIdle is an Idle that does nothing, for callers with no such
// concept to bracket.
type NoopIdle struct{}

func (NoopIdle) Start() {}
func (NoopIdle) End()   {}

// CacheSuspend is the external cache-disable counter the scheduler
// increments/decrements around an operation's suspend_cache flag
// (spec.md §3 invariant 4).
type CacheSuspend interface {
	Disable()
	Enable()
}

// NoopCacheSuspend is a CacheSuspend that does nothing.
type NoopCacheSuspend struct{}

func (NoopCacheSuspend) Disable() {}
func (NoopCacheSuspend) Enable()  {}

// Message is what the scheduler hands a stage's Process method: the
// result of whichever sub-request or child operation the stage is
// waiting on. Exactly one of Reply or ChildDone is meaningful.
type Message struct {
	Reply     unified.Reply
	Err       error
	ChildDone bool
	ChildErr  error
}

// stage is the five-stage contract every op-kind implements, per
// spec.md §4.1's "Stage protocol" table.
type stage interface {
	Initialise(ctx context.Context, op *Op) error
	Process(ctx context.Context, op *Op, msg Message) error
	// Abort receives the same re-entry message Process would have, so
	// a teardown sub-request issued from one Abort call (e.g. closing
	// a remote handle) can be tracked to completion on the next: the
	// stage sets op's status to StatusAborted only once its teardown
	// is actually done (spec.md §4.1: "the operation is not destroyed
	// until that teardown completes").
	Abort(ctx context.Context, op *Op, msg Message) error
	PreFinalise(ctx context.Context, op *Op) error
	PostFinalise(ctx context.Context, op *Op) error
}

// Op is one live operation record, per spec.md §3's "Operation
// record".
type Op struct {
	engine *Engine
	handle Handle
	kind   Kind
	stage  stage

	parent *Op
	child  *Op
	prev, next *Op // global flat list, weak links

	initialised    bool
	finalised      bool
	abortRequested bool
	pauseRequested bool
	reentrant      bool
	recurse        bool
	suspendCache   bool
	suspendCacheHeld bool

	status   Status
	response Response
	hasResponse bool
	quiet    bool

	err       error
	storedErr error

	detail string
	result any

	timing timing

	pendingMsg Message
	hasPending bool
}

// Handle reports this operation's handle.
func (op *Op) Handle() Handle { return op.handle }

// Kind reports this operation's op-kind.
func (op *Op) Kind() Kind { return op.kind }

// Quiet reports the inherited "quiet" flag (spec.md §3): once set by
// a response, children created afterwards inherit it.
func (op *Op) Quiet() bool { return op.quiet }

// SetQuiet sets the inherited quiet flag.
func (op *Op) SetQuiet(v bool) { op.quiet = v }

const maxDetailLen = 1024

// SetDetail records a human-readable description of the current
// step, truncated to 1024 bytes with an ellipsis if it overflows
// (spec.md §3's "detail string (≤1024 bytes)").
func (op *Op) SetDetail(s string) {
	if len(s) <= maxDetailLen {
		op.detail = s
		return
	}
	const ellipsis = "..."
	op.detail = s[:maxDetailLen-len(ellipsis)] + ellipsis
}

// Detail reports the current detail string.
func (op *Op) Detail() string { return op.detail }

// SetStatus sets the descriptive in-flight status (spec.md §3); it
// does not itself drive the scheduler.
func (op *Op) SetStatus(s Status) { op.status = s }

// SetRecurse sets whether Poll should descend into the current child
// when reporting this operation's progress.
func (op *Op) SetRecurse(v bool) { op.recurse = v }

// SetSuspendCache sets whether the engine's cache-suspend collaborator
// should be held disabled while this operation is not done (spec.md
// §3 invariant 4).
func (op *Op) SetSuspendCache(v bool) { op.suspendCache = v }

// Mark records progress in op-kind-specific abstract units (spec.md
// §4.1's mark(done, remain, step)).
func (op *Op) Mark(done, remain, step int64) {
	op.timing.fracDone = frac.New(done, done+remain)
	op.timing.fracStep = frac.New(step, done+remain)
	op.timing.timeDone = op.engine.nowCS()
}

// Submit issues one unified command and re-enters the scheduler with
// its reply, wiring this op's Process stage to the dispatcher per
// spec.md §4.1/§4.2's collaboration.
func (op *Op) Submit(ctx context.Context, cmd unified.Command) error {
	return op.engine.dispatcher.Submit(ctx, cmd, op.handle, op.engine.onDispatchComplete)
}

// Delegate creates and starts a child operation, aborting any
// existing child first (spec.md §3 invariant 2). The parent's status
// becomes StatusDelegating until the child is consumed. Delegating at
// all marks this operation recurse: Poll should report the deepest
// still-running descendant rather than this op's own stale detail.
func (op *Op) Delegate(kind Kind, params any) error {
	if op.child != nil {
		old := op.child
		old.abortRequested = true
		op.engine.schedule(old, Message{})
	}
	op.recurse = true
	child, err := op.engine.newOp(kind, params, op)
	if err != nil {
		return err
	}
	op.child = child
	op.status = StatusDelegating
	op.engine.schedule(child, Message{})
	return nil
}

// ConsumeChild reports the finished child's outcome and detaches it,
// letting the engine destroy it (spec.md's "destroyed when the
// parent has consumed its result"). It must only be called once the
// parent has observed ChildDone.
func (op *Op) ConsumeChild() (Status, error) {
	c := op.child
	if c == nil {
		return StatusSuccess, nil
	}
	status, err := c.status, c.err
	op.child = nil
	op.engine.destroy(c)
	return status, err
}

// SetResult stashes a stage-specific result value (e.g. the path
// found) for a parent to read back via Op.Result after observing
// ChildDone — the op-kind union's "response slot" extended to carry
// data a plain Status/error pair cannot.
func (op *Op) SetResult(v any) { op.result = v }

// Result reports the value last stashed with SetResult, nil if none.
func (op *Op) Result() any { return op.result }

// Child exposes the current child, if any, e.g. so Process can read
// its Detail() for a nested progress description.
func (op *Op) Child() *Op { return op.child }

// TakeResponse reports the response most recently supplied to a
// waiting operation, and whether one has arrived since it was last
// consumed; it marks that response consumed.
func (op *Op) TakeResponse() (Response, bool) {
	r, ok := op.response, op.hasResponse
	op.hasResponse = false
	return r, ok
}

// Engine is the scheduler of spec.md §4.1: a flat registry of
// operations driven by external callback arrival, exposing
// start/end/poll/response/pause/resume/status.
type Engine struct {
	mu         sync.Mutex
	ops        map[Handle]*Op
	head, tail *Op
	handles    handlestore.HandleStore
	idle       Idle
	cache      CacheSuspend
	dispatcher *unified.Dispatcher
	now        func() time.Time
	epoch      time.Time
}

// Options configures an Engine's external collaborators.
type Options struct {
	Idle  Idle
	Cache CacheSuspend
}

// New creates an Engine driving ops onto dispatcher, persisting
// handle allocation through handles.
func New(dispatcher *unified.Dispatcher, handles handlestore.HandleStore, opt Options) *Engine {
	if opt.Idle == nil {
		opt.Idle = NoopIdle{}
	}
	if opt.Cache == nil {
		opt.Cache = NoopCacheSuspend{}
	}
	now := time.Now
	return &Engine{
		ops:        make(map[Handle]*Op),
		handles:    handles,
		idle:       opt.Idle,
		cache:      opt.Cache,
		dispatcher: dispatcher,
		now:        now,
		epoch:      now(),
	}
}

func (e *Engine) nowCS() int64 {
	return e.now().Sub(e.epoch).Milliseconds() / 10
}

func (e *Engine) allocHandle() (Handle, error) {
	last, err := e.handles.LastHandle()
	if err != nil {
		return 0, err
	}
	next := Handle(last) + 1
	if next == InvalidHandle {
		next++
	}
	if err := e.handles.SetLastHandle(int64(next)); err != nil {
		return 0, err
	}
	return next, nil
}

func (e *Engine) newOp(kind Kind, params any, parent *Op) (*Op, error) {
	handle, err := e.allocHandle()
	if err != nil {
		return nil, err
	}
	st, err := newStage(kind, params)
	if err != nil {
		return nil, err
	}
	op := &Op{engine: e, handle: handle, kind: kind, stage: st, parent: parent, status: StatusBusy}
	if parent != nil {
		op.quiet = parent.quiet
		op.recurse = parent.recurse
	}

	e.mu.Lock()
	e.ops[handle] = op
	op.prev = e.tail
	if e.tail != nil {
		e.tail.next = op
	} else {
		e.head = op
	}
	e.tail = op
	e.mu.Unlock()
	return op, nil
}

func (e *Engine) destroy(op *Op) {
	e.mu.Lock()
	delete(e.ops, op.handle)
	if op.prev != nil {
		op.prev.next = op.next
	} else if e.head == op {
		e.head = op.next
	}
	if op.next != nil {
		op.next.prev = op.prev
	} else if e.tail == op {
		e.tail = op.prev
	}
	e.mu.Unlock()
}

func (e *Engine) lookup(handle Handle) (*Op, error) {
	e.mu.Lock()
	op, ok := e.ops[handle]
	e.mu.Unlock()
	if !ok {
		return nil, perr.New(perr.KindBadHandle, "async: no such operation %d", handle)
	}
	return op, nil
}

// Start enqueues a root operation, driving at least its INITIALISE
// stage synchronously before returning (spec.md §4.1's start
// contract).
func (e *Engine) Start(kind Kind, params any) (Handle, error) {
	op, err := e.newOp(kind, params, nil)
	if err != nil {
		return 0, err
	}
	e.schedule(op, Message{})
	return op.handle, nil
}

// End requests abort of the identified operation and its
// descendants; if the operation is already done (and not itself
// still tearing down as aborted), it is destroyed immediately — the
// "caller has consumed the result" case from spec.md's lifecycle.
func (e *Engine) End(handle Handle) error {
	op, err := e.lookup(handle)
	if err != nil {
		return err
	}
	if op.status.IsDone() {
		if op.status != StatusAborted {
			e.destroy(op)
		}
		return nil
	}
	op.abortRequested = true
	for c := op.child; c != nil; c = c.child {
		c.abortRequested = true
	}
	e.schedule(op, Message{})
	return nil
}

// PollResult is the reply to Poll.
type PollResult struct {
	Status        Status
	Description   string
	Detail        string
	ErrorText     string
	TimeTaken     time.Duration
	TimeRemaining time.Duration
}

// Poll reads the most informative still-running descendant if
// recurse is set on the named operation, else the operation itself,
// and computes a smoothed remaining-time estimate (spec.md §4.1). As
// the client's only regularly-repeated call into the engine, Poll
// doubles as the "host's cooperative loop" stopstart.go's doStart/
// doStop describe driving the dispatcher's timer-based sub-state
// machines (the stop-poll and start-settle delays) — without this,
// nothing would ever advance them to completion.
func (e *Engine) Poll(handle Handle) (PollResult, error) {
	e.dispatcher.Advance(e.now())
	op, err := e.lookup(handle)
	if err != nil {
		return PollResult{}, err
	}
	target := op
	if op.recurse {
		for target.child != nil {
			target = target.child
		}
	}

	now := e.nowCS()
	taken, remain := rawTime(target, now)
	var remainCS int64
	if taken >= 3*100 { // bypass the smoother while elapsed < 300cs
		remainCS = prettyTime(target, taken, remain)
	} else {
		remainCS = remain
	}
	if taken < 10*100 { // hide remaining time while elapsed < 1000cs
		remainCS = 0
	}

	errText := ""
	if target.err != nil {
		errText = target.err.Error()
	}
	return PollResult{
		Status:        target.status,
		Description:   target.kind.String(),
		Detail:        target.detail,
		ErrorText:     errText,
		TimeTaken:     time.Duration(taken) * 10 * time.Millisecond,
		TimeRemaining: time.Duration(remainCS) * 10 * time.Millisecond,
	}, nil
}

// Response supplies a client's answer to the named operation, or to
// its deepest waiting descendant if the named op is not itself
// waiting (spec.md §4.1).
func (e *Engine) Response(handle Handle, r Response) error {
	op, err := e.lookup(handle)
	if err != nil {
		return err
	}
	target := op
	for !target.status.IsWaiting() && target.child != nil {
		target = target.child
	}
	if !target.status.IsWaiting() {
		return perr.New(perr.KindBadState, "async: operation %d is not waiting for a response", handle)
	}
	target.response = r
	target.hasResponse = true
	if r == ResponseQuiet {
		target.quiet = true
	}
	e.schedule(target, Message{})
	return nil
}

// Pause flags the operation and all descendants; they pause at their
// next stage boundary (spec.md §3 invariant 7).
func (e *Engine) Pause(handle Handle) error {
	op, err := e.lookup(handle)
	if err != nil {
		return err
	}
	op.pauseRequested = true
	for c := op.child; c != nil; c = c.child {
		c.pauseRequested = true
	}
	return nil
}

// Resume clears the pause flag and re-enters scheduling.
func (e *Engine) Resume(handle Handle) error {
	op, err := e.lookup(handle)
	if err != nil {
		return err
	}
	op.pauseRequested = false
	for c := op.child; c != nil; c = c.child {
		c.pauseRequested = false
	}
	if op.status == StatusPaused {
		op.status = StatusBusy
		e.schedule(op, Message{})
	}
	return nil
}

// StatusAll enumerates all active root operations, for diagnostic
// output (spec.md §4.1's status contract).
func (e *Engine) StatusAll() []Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Handle
	for op := e.head; op != nil; op = op.next {
		if op.parent == nil {
			out = append(out, op.handle)
		}
	}
	return out
}

func (e *Engine) onDispatchComplete(token any, reply unified.Reply, err error) {
	handle, ok := token.(Handle)
	if !ok {
		return
	}
	op, lookupErr := e.lookup(handle)
	if lookupErr != nil {
		return
	}
	e.schedule(op, Message{Reply: reply, Err: err})
}

// schedule is the scheduler's re-entrancy guard (spec.md §4.1 step
// 1): a callback arriving while the operation is already running is
// queued and replayed once the in-flight call returns.
func (e *Engine) schedule(op *Op, msg Message) {
	if op.reentrant {
		op.pendingMsg = msg
		op.hasPending = true
		return
	}
	op.reentrant = true
	e.runOnce(op, msg)
	op.reentrant = false

	if op.hasPending {
		pending := op.pendingMsg
		op.hasPending = false
		e.schedule(op, pending)
	}
}

// runOnce implements one pass of the scheduler loop, spec.md §4.1
// steps 2-8.
func (e *Engine) runOnce(op *Op, msg Message) {
	if op.pauseRequested && !op.status.IsDone() {
		op.status = StatusPaused
		e.stopTimer(op)
		e.releaseCacheSuspend(op)
		return
	}

	e.ensureTimerRunning(op)
	if op.storedErr != nil {
		if msg.Err == nil {
			msg.Err = op.storedErr
		}
		op.storedErr = nil
	}

	ctx := context.Background()
	var stageErr error
	switch {
	case !op.initialised:
		op.initialised = true
		e.idle.Start()
		stageErr = op.stage.Initialise(ctx, op)
	case op.abortRequested:
		stageErr = op.stage.Abort(ctx, op, msg)
	default:
		stageErr = op.stage.Process(ctx, op, msg)
	}

	if stageErr != nil {
		plog.Errorf(nil, "async: operation %d (%s) failed: %v", op.handle, op.kind, stageErr)
		op.status = StatusError
		op.err = stageErr
	}

	e.updateCacheSuspend(op)
	if isQuiescent(op.status) {
		e.stopTimer(op)
	}

	if op.status.IsDone() && !op.finalised {
		op.finalised = true
		if err := op.stage.PreFinalise(ctx, op); err != nil && op.err == nil {
			op.err = err
		}
		e.idle.End()
		if op.parent != nil {
			parent := op.parent
			parent.timing.timeAcc += op.timing.timeAcc
			e.schedule(parent, Message{ChildDone: true, ChildErr: op.err})
		}
	}

	if op.status == StatusAborted && op.finalised {
		_ = op.stage.PostFinalise(ctx, op)
		e.destroy(op)
	}
}

func (e *Engine) ensureTimerRunning(op *Op) {
	if !op.timing.running {
		op.timing.running = true
		op.timing.timeStart = e.nowCS()
	}
}

func (e *Engine) stopTimer(op *Op) {
	if op.timing.running {
		op.timing.timeAcc += e.nowCS() - op.timing.timeStart
		op.timing.running = false
	}
}

func (e *Engine) updateCacheSuspend(op *Op) {
	want := op.suspendCache && !op.status.IsDone()
	if want && !op.suspendCacheActive() {
		e.cache.Disable()
		op.suspendCacheOn()
	} else if !want && op.suspendCacheActive() {
		e.cache.Enable()
		op.suspendCacheOff()
	}
}

func (e *Engine) releaseCacheSuspend(op *Op) {
	if op.suspendCacheActive() {
		e.cache.Enable()
		op.suspendCacheOff()
	}
}

// suspendCacheActive/On/Off track whether this op currently holds the
// single increment invariant.md §3's invariant 4 describes.
func (op *Op) suspendCacheActive() bool { return op.suspendCacheHeld }
func (op *Op) suspendCacheOn()          { op.suspendCacheHeld = true }
func (op *Op) suspendCacheOff()         { op.suspendCacheHeld = false }
