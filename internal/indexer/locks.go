package indexer

import "sync"

// connLocks hands out one non-reentrant mutex per connection id, created
// lazily on first access. Acquire never blocks: a second caller for the same
// id is turned away immediately.
type connLocks struct {
	locks sync.Map // connection id -> *sync.Mutex
}

// TryAcquire attempts to take the connection's lock without blocking.
func (l *connLocks) TryAcquire(connectionID string) bool {
	mu, _ := l.locks.LoadOrStore(connectionID, &sync.Mutex{})
	return mu.(*sync.Mutex).TryLock()
}

// Release unlocks the connection's lock. Must only follow a successful
// TryAcquire for the same id.
func (l *connLocks) Release(connectionID string) {
	if mu, ok := l.locks.Load(connectionID); ok {
		mu.(*sync.Mutex).Unlock()
	}
}
