// Package pool bounds the number of gateway calls in flight.
package pool

import "context"

// MaxSize caps the number of slots a Pool can hold.
const MaxSize = 256

// Pool is a counting semaphore shared by every submission run, so a burst of
// fanned-out ticket or relation creates cannot flood the remote API.
type Pool struct {
	sem chan struct{}
}

// New creates a pool with at least one slot and at most MaxSize slots.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	if size > MaxSize {
		size = MaxSize
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Acquire reserves one slot in the pool.
// If the pool is full, it blocks until a slot becomes available
// or the context is canceled, in which case it returns ctx.Err().
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (p *Pool) Release() {
	<-p.sem
}

// Size returns the number of slots.
func (p *Pool) Size() int { return cap(p.sem) }

// InUse returns the number of slots currently held.
func (p *Pool) InUse() int { return len(p.sem) }
