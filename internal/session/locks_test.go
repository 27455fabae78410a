package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
)

func TestLocks_TryLock(t *testing.T) {
	l := NewLocks()
	id := uuid.New()

	unlock, ok := l.TryLock(id)
	if !ok {
		t.Fatal("first TryLock failed")
	}
	if _, ok := l.TryLock(id); ok {
		t.Fatal("second TryLock succeeded while held")
	}
	if _, ok := l.TryLock(uuid.New()); !ok {
		t.Error("lock on another session was blocked")
	}

	unlock()
	unlock()
	if l.Held(id) {
		t.Error("lock still held after unlock")
	}
	if _, ok := l.TryLock(id); !ok {
		t.Error("TryLock after unlock failed")
	}
}

func TestLocks_OneWinnerUnderContention(t *testing.T) {
	l := NewLocks()
	id := uuid.New()

	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := l.TryLock(id); ok {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("winners = %d, want 1", winners.Load())
	}
}
