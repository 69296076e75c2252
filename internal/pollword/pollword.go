// Package pollword implements the notification bus of spec.md §4.3: a
// process-wide registry of (client, interest mask, word cell) triples.
// update(mask) ORs mask into every registered cell whose interest
// overlaps it; clients spin on their own cell.
package pollword

import (
	"fmt"
	"sync"
)

// Mask is a bitmask of notification classes. Bit meanings are
// assigned by the host (e.g. one bit per remote-device connect/
// disconnect/async-activity/cache-update class); this package treats
// them opaquely.
type Mask uint32

// Cell is the word a client polls. It is safe for concurrent use: the
// bus ORs new bits into it, the client reads/resets it independently.
type Cell struct {
	mu    sync.Mutex
	value Mask
}

// Peek reads the current value without clearing it.
func (c *Cell) Peek() Mask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Take reads and clears the current value.
func (c *Cell) Take() Mask {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.value
	c.value = 0
	return v
}

func (c *Cell) or(mask Mask) {
	c.mu.Lock()
	c.value |= mask
	c.mu.Unlock()
}

type registration struct {
	client   string
	interest Mask
	cell     *Cell
}

// Bus is the process-wide registry. The zero value is not ready for
// use; construct with New.
type Bus struct {
	mu   sync.Mutex
	regs map[string]*registration
}

// New creates an empty notification bus.
func New() *Bus {
	return &Bus{regs: make(map[string]*registration)}
}

// Register adds (or replaces) a client's registration with the given
// interest mask, returning the Cell it should poll.
func (b *Bus) Register(client string, interest Mask) *Cell {
	b.mu.Lock()
	defer b.mu.Unlock()
	cell := &Cell{}
	b.regs[client] = &registration{client: client, interest: interest, cell: cell}
	return cell
}

// Unregister removes client's registration. The caller is responsible
// for releasing any WIMP-filter intercept it owns (external to this
// package, per spec.md §4.3); this package only drops the cell.
func (b *Bus) Unregister(client string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.regs, client)
}

// Update ORs mask into every registered client's cell whose interest
// mask intersects it.
func (b *Bus) Update(mask Mask) {
	b.mu.Lock()
	regs := make([]*registration, 0, len(b.regs))
	for _, r := range b.regs {
		regs = append(regs, r)
	}
	b.mu.Unlock()

	for _, r := range regs {
		if r.interest&mask != 0 {
			r.cell.or(mask)
		}
	}
}

// NumRegistered returns the number of clients currently registered.
func (b *Bus) NumRegistered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.regs)
}

// ErrClientsRegistered is returned by Finalise when clients remain
// registered, per spec.md §4.3 ("Finalisation fails if any client is
// still registered").
type ErrClientsRegistered struct {
	Count int
}

func (e *ErrClientsRegistered) Error() string {
	return fmt.Sprintf("pollword: %d client(s) still registered", e.Count)
}

// Finalise tears down the bus, failing if any client is still
// registered.
func (b *Bus) Finalise() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.regs) > 0 {
		return &ErrClientsRegistered{Count: len(b.regs)}
	}
	return nil
}
