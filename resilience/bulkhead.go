package resilience

import (
	"context"
	"sync/atomic"
	"time"
)

// Bulkhead caps concurrent operations, e.g. open server connections.
type Bulkhead struct {
	max     int
	maxWait time.Duration
	sem     chan struct{}

	rejected atomic.Int64
}

// NewBulkhead creates a Bulkhead with max slots. With maxWait zero, Acquire
// fails immediately when full.
func NewBulkhead(max int, maxWait time.Duration) *Bulkhead {
	if max <= 0 {
		max = 10
	}
	return &Bulkhead{
		max:     max,
		maxWait: maxWait,
		sem:     make(chan struct{}, max),
	}
}

// Acquire takes a slot or returns ErrBulkheadFull.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.maxWait <= 0 {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		b.rejected.Add(1)
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
	default:
	}
}

// Execute runs op inside a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

// Active returns the number of held slots.
func (b *Bulkhead) Active() int { return len(b.sem) }

// Rejected returns how many acquisitions failed.
func (b *Bulkhead) Rejected() int64 { return b.rejected.Load() }
