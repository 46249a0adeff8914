package booking

import "sync"

// slotLocks serializes booking attempts per (date, hour) slot within this
// process. Only used when capacity enforcement is enabled; the default mode
// keeps the advisory model where concurrent writes may overbook a slot.
type slotLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSlotLocks() *slotLocks {
	return &slotLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the slot and returns its release function. Lock entries are
// never removed; the keyspace is bounded by the booking horizon.
func (l *slotLocks) Acquire(date, hour string) func() {
	key := date + "T" + hour

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
