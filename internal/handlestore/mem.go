package handlestore

// HandleStore is the persistence seam the async engine's handle
// allocator uses; *Store (bbolt-backed) and *Mem (in-memory, for tests
// and for hosts that do not want a bbolt file) both implement it.
type HandleStore interface {
	LastHandle() (int64, error)
	SetLastHandle(handle int64) error
}

// Mem is an in-memory HandleStore. It persists nothing across process
// restarts, which is acceptable for tests; production wiring uses
// *Store.
type Mem struct {
	last int64
}

// NewMem creates an empty in-memory handle store.
func NewMem() *Mem {
	return &Mem{}
}

// LastHandle implements HandleStore.
func (m *Mem) LastHandle() (int64, error) {
	return m.last, nil
}

// SetLastHandle implements HandleStore.
func (m *Mem) SetLastHandle(handle int64) error {
	m.last = handle
	return nil
}

var (
	_ HandleStore = (*Store)(nil)
	_ HandleStore = (*Mem)(nil)
)
