package unified

import (
	"context"
	"sort"
	"strings"

	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

// entrySize is the nominal wire size of one directory entry, used to
// size the shared scratch buffer's entry-count request.
const entrySize = 64

func (d *Dispatcher) doList(ctx context.Context, svc wire.Service, c ListCmd, token any, onComplete OnComplete) {
	svc.OpenDir(ctx, c.Path, func(handle int32, err error) {
		if err != nil {
			onComplete(token, nil, err)
			return
		}
		var all []RISCEntry
		d.listLoop(ctx, svc, handle, &all, token, onComplete)
	})
}

func (d *Dispatcher) listLoop(ctx context.Context, svc wire.Service, handle int32, all *[]RISCEntry, token any, onComplete OnComplete) {
	maxEntries := d.buf.Len() / entrySize
	svc.ReadDir(ctx, handle, maxEntries, func(batch []wire.Entry, err error) {
		if err != nil {
			// Close-dir always, even on error (spec.md §4.2 "list").
			svc.CloseDir(ctx, handle, func(_ struct{}, _ error) {
				onComplete(token, nil, err)
			})
			return
		}
		for _, e := range batch {
			*all = append(*all, toRISCEntry(e.Name, e.Info))
		}
		if len(batch) == 0 {
			svc.CloseDir(ctx, handle, func(_ struct{}, closeErr error) {
				if closeErr != nil {
					onComplete(token, nil, closeErr)
					return
				}
				sort.Slice(*all, func(i, j int) bool {
					return strings.ToLower((*all)[i].Name) < strings.ToLower((*all)[j].Name)
				})
				onComplete(token, ListReply{Entries: *all}, nil)
			})
			return
		}
		// More may follow; grow the buffer's notion of batch size on
		// overflow the same way the "tasks" sub-machine does.
		if len(batch) >= maxEntries {
			d.buf.Ensure(d.buf.Len() * 2)
		}
		d.listLoop(ctx, svc, handle, all, token, onComplete)
	})
}
