package unified

import (
	"context"
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

// doStop issues StopProgram and then polls ProgRunning every
// opt.StopPollInterval until it reports false or opt.StopTimeout
// elapses, per spec.md §4.2 "stop".
func (d *Dispatcher) doStop(ctx context.Context, svc wire.Service, c StopCmd, token any, onComplete OnComplete) {
	svc.StopProgram(ctx, c.TaskID, func(_ struct{}, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		deadline := d.now().Add(d.opt.StopTimeout)
		d.stopPoll(ctx, svc, c.TaskID, deadline, token, onComplete)
	})
}

func (d *Dispatcher) stopPoll(ctx context.Context, svc wire.Service, taskID uint32, deadline time.Time, token any, onComplete OnComplete) {
	svc.ProgRunning(ctx, taskID, func(running bool, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		if !running {
			onComplete(token, EmptyReply{TagStop}, nil)
			return
		}
		if !d.now().Before(deadline) {
			onComplete(token, nil, perr.New(perr.KindRemoteNotReady, "stop: task %d still running after timeout", taskID))
			return
		}
		d.timers.Submit(d.now().Add(d.opt.StopPollInterval), func() {
			d.stopPoll(ctx, svc, taskID, deadline, token, onComplete)
		})
	})
}

// doStart issues StartProgram and then waits opt.StartSettleDelay
// before reporting success, per spec.md §4.2 "start": a task just
// launched may not yet be visible to a subsequent "tasks"/"detail"
// query without this settle window.
func (d *Dispatcher) doStart(ctx context.Context, svc wire.Service, c StartCmd, token any, onComplete OnComplete) {
	svc.StartProgram(ctx, c.Path, c.Args, func(taskID uint32, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		d.timers.Submit(d.now().Add(d.opt.StartSettleDelay), func() {
			onComplete(token, StartReply{TaskID: taskID}, nil)
		})
	})
}
