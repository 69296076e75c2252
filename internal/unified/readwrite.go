package unified

import (
	"context"

	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

func (d *Dispatcher) maxChunk(variant wire.Variant) int {
	if variant == wire.VariantERA {
		return d.opt.MaxChunkERA
	}
	return d.opt.MaxChunkSIBO
}

func (d *Dispatcher) doRead(ctx context.Context, svc wire.Service, c ReadCmd, token any, onComplete OnComplete) {
	out := make([]byte, 0, c.Length)
	d.readLoop(ctx, svc, c.Handle.wireHandle, c.Length, out, token, onComplete)
}

func (d *Dispatcher) readLoop(ctx context.Context, svc wire.Service, handle int32, remaining int, acc []byte, token any, onComplete OnComplete) {
	if remaining <= 0 {
		onComplete(token, ReadReply{Data: acc}, nil)
		return
	}
	chunk := d.maxChunk(svc.Variant())
	if chunk > remaining {
		chunk = remaining
	}
	svc.Read(ctx, handle, chunk, func(data []byte, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		acc = append(acc, data...)
		if len(data) < chunk {
			// Short read: remote hit EOF.
			onComplete(token, ReadReply{Data: acc}, nil)
			return
		}
		d.readLoop(ctx, svc, handle, remaining-len(data), acc, token, onComplete)
	})
}

func (d *Dispatcher) doWrite(ctx context.Context, svc wire.Service, c WriteCmd, token any, onComplete OnComplete) {
	d.writeLoop(ctx, svc, c.Handle.wireHandle, c.Data, 0, token, onComplete)
}

func (d *Dispatcher) writeLoop(ctx context.Context, svc wire.Service, handle int32, data []byte, written int, token any, onComplete OnComplete) {
	if written >= len(data) {
		onComplete(token, WriteReply{N: written}, nil)
		return
	}
	chunk := d.maxChunk(svc.Variant())
	end := written + chunk
	if end > len(data) {
		end = len(data)
	}
	svc.Write(ctx, handle, data[written:end], func(n int, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		d.writeLoop(ctx, svc, handle, data, written+n, token, onComplete)
	})
}

func (d *Dispatcher) doZero(ctx context.Context, svc wire.Service, c ZeroCmd, token any, onComplete OnComplete) {
	d.zeroLoop(ctx, svc, c.Handle.wireHandle, c.Length, 0, token, onComplete)
}

func (d *Dispatcher) zeroLoop(ctx context.Context, svc wire.Service, handle int32, total, written int, token any, onComplete OnComplete) {
	if written >= total {
		onComplete(token, WriteReply{N: written}, nil)
		return
	}
	chunk := d.maxChunk(svc.Variant())
	remaining := total - written
	if chunk > remaining {
		chunk = remaining
	}
	svc.Zero(ctx, handle, chunk, func(n int, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		d.zeroLoop(ctx, svc, handle, total, written+n, token, onComplete)
	})
}
