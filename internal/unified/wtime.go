package unified

import (
	"context"

	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

// doWTime reads the remote's current machine info first so that
// auxiliary time-zone fields (offset, DST flag) survive the update,
// then calls SetHomeTime with only the home-time word replaced, per
// spec.md §4.2 "wtime".
func (d *Dispatcher) doWTime(ctx context.Context, svc wire.Service, c WTimeCmd, token any, onComplete OnComplete) {
	svc.MachineInfo(ctx, func(_ wire.MachineInfo, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		svc.SetHomeTime(ctx, c.Time, func(_ struct{}, err error) {
			onComplete(token, EmptyReply{TagWTime}, err)
		})
	})
}
