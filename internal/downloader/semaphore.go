package downloader

import (
	"context"
	"sync"
)

// Semaphore limits the number of simultaneous downloads, and it can be resized while in use.
type Semaphore struct {
	cond              sync.Cond
	capacity, current int
}

// NewSemaphore returns a Semaphore that allows at most capacity simultaneous acquisitions.
// If capacity <= 0, there is no limit.
func NewSemaphore(capacity int) *Semaphore {
	return &Semaphore{
		cond:     sync.Cond{L: &sync.Mutex{}},
		capacity: capacity,
	}
}

// Acquire blocks until a slot is available or ctx is done, in which case it returns ctx.Err()
// and no slot is taken. On success it must be matched by exactly one call to Release.
func (s *Semaphore) Acquire(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.cond.L.Lock()
		defer s.cond.L.Unlock()
		s.cond.Broadcast()
	})
	defer stop()

	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	for s.capacity > 0 && s.current >= s.capacity {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.current++
	return nil
}

// Release a slot previously taken with Acquire.
func (s *Semaphore) Release() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.current--
	// Waiters may have been cancelled, so wake all of them.
	s.cond.Broadcast()
}

// Resize changes the capacity. Growing it may immediately unblock pending Acquire calls;
// shrinking it doesn't affect current acquisitions.
func (s *Semaphore) Resize(newCapacity int) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	if newCapacity == s.capacity {
		return
	}
	s.capacity = newCapacity
	s.cond.Broadcast()
}
