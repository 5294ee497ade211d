package agent

import "context"

// WorkerPool bounds the number of concurrent remote calls.
type WorkerPool struct {
	sem chan struct{}
}

// NewWorkerPool creates a pool with size slots. Non-positive sizes default to 5.
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 5
	}
	return &WorkerPool{
		sem: make(chan struct{}, size),
	}
}

// Size returns the number of slots.
func (p *WorkerPool) Size() int {
	return cap(p.sem)
}

// Release returns a worker slot to the pool.
func (p *WorkerPool) Release() {
	<-p.sem
}

// RunContext executes fn with a slot held, respecting context cancellation.
// Returns ctx.Err() if the context is cancelled while waiting for a slot.
func (p *WorkerPool) RunContext(ctx context.Context, fn func()) error {
	select {
	case p.sem <- struct{}{}:
		defer p.Release()
		fn()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
