package unified

import (
	"context"

	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

// doDrive queries one drive letter's presence and name, then attempts
// a unique-ID query as a second, non-fatal round trip: a remote that
// cannot supply one (spec.md §4.2 "drive") leaves UniqueID at zero
// rather than failing the whole command.
func (d *Dispatcher) doDrive(ctx context.Context, svc wire.Service, c DriveCmd, token any, onComplete OnComplete) {
	svc.QueryVolume(ctx, c.Drive, func(vol wire.Volume, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		if !vol.Present {
			onComplete(token, DriveReply{Present: false}, nil)
			return
		}
		svc.QueryUniqueID(ctx, func(id uint32, err error) {
			if err != nil {
				// Non-fatal: report the drive without a unique ID.
				onComplete(token, DriveReply{Present: true, Name: vol.Name}, nil)
				return
			}
			onComplete(token, DriveReply{Present: true, Name: vol.Name, UniqueID: id}, nil)
		})
	})
}
