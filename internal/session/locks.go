package session

import (
	"sync"

	"github.com/google/uuid"
)

// Locks serializes turns per session within one process. It never blocks:
// a caller that cannot take the lock is told so and gives up.
type Locks struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewLocks creates an empty lock set.
func NewLocks() *Locks {
	return &Locks{held: make(map[uuid.UUID]struct{})}
}

// TryLock takes the lock for id. It returns false if the lock is held.
// The returned func releases the lock and is safe to call more than once.
func (l *Locks) TryLock(id uuid.UUID) (unlock func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[id]; busy {
		return func() {}, false
	}
	l.held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
		})
	}, true
}

// Held reports whether id is locked.
func (l *Locks) Held(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[id]
	return ok
}
