package unified

import (
	"context"
	"strings"

	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire/rpath"
)

// doTasks enumerates running remote tasks. ERA issues a single
// EnumTasks call; SIBO has no such call and instead walks drive
// letters A..Z with QueryDriveTasks, concatenating results, per
// spec.md §4.2 "tasks". Command-line arguments are re-rendered into
// RISC OS path shape where they look path-like, falling back to the
// original string where they do not.
func (d *Dispatcher) doTasks(ctx context.Context, svc wire.Service, token any, onComplete OnComplete) {
	if svc.Variant() == wire.VariantERA {
		svc.EnumTasks(ctx, func(tasks []wire.Task, err error) {
			if err != nil {
				onComplete(token, nil, err)
				return
			}
			onComplete(token, TasksReply{Tasks: renderTasks(svc.Variant(), tasks)}, nil)
		})
		return
	}
	d.tasksDriveLoop(ctx, svc, 'A', nil, token, onComplete)
}

func (d *Dispatcher) tasksDriveLoop(ctx context.Context, svc wire.Service, drive byte, acc []wire.Task, token any, onComplete OnComplete) {
	if drive > 'Z' {
		onComplete(token, TasksReply{Tasks: renderTasks(svc.Variant(), acc)}, nil)
		return
	}
	svc.QueryDriveTasks(ctx, drive, func(tasks []wire.Task, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		acc = append(acc, tasks...)
		if len(acc) >= d.buf.Len()/entrySize {
			d.buf.Ensure(d.buf.Len() * 2)
		}
		d.tasksDriveLoop(ctx, svc, drive+1, acc, token, onComplete)
	})
}

func renderTasks(variant wire.Variant, tasks []wire.Task) []TaskReply {
	out := make([]TaskReply, len(tasks))
	for i, t := range tasks {
		out[i] = TaskReply{
			ID:   t.ID,
			Name: renderRemoteString(variant, t.Name),
			Args: renderRemoteString(variant, t.Args),
		}
	}
	return out
}

// renderRemoteString re-renders a remote path embedded in a task name
// or argument string into RISC OS form, falling back to the
// already-decoded original when the string does not look path-like
// (no separator to translate).
func renderRemoteString(variant wire.Variant, s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	if variant == wire.VariantERA {
		return rpath.FromERA(s)
	}
	return rpath.FromSIBO(s)
}
