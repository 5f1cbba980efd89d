package kitting

import "sync"

// kitLocks provides per-kit mutual exclusion. Transitions and reservation
// mutations are serialized per kit but independent across kits; there is no
// global lock.
type kitLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKitLocks() *kitLocks {
	return &kitLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the kit's mutex and returns the unlock function.
func (l *kitLocks) Lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
