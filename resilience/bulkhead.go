package resilience

import (
	"context"
	"sync/atomic"
	"time"
)

// BulkheadConfig configures the concurrency cap.
type BulkheadConfig struct {
	// MaxConcurrent is the number of operations allowed in flight at once.
	// Default: 10
	MaxConcurrent int

	// MaxWait is how long Acquire waits for a slot before rejecting.
	// Default: 0 (reject immediately)
	MaxWait time.Duration
}

// Bulkhead caps in-flight operations with a buffered-channel semaphore.
type Bulkhead struct {
	config   BulkheadConfig
	sem      chan struct{}
	rejected atomic.Int64
}

// NewBulkhead builds a bulkhead, applying defaults for zero fields.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire claims a slot. It returns ErrBulkheadFull when no slot frees up
// within MaxWait, or the context's error if ctx ends first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
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

// Release frees a slot. Releasing without a matching Acquire is a no-op.
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

// InFlight returns the slots currently held.
func (b *Bulkhead) InFlight() int {
	return len(b.sem)
}

// Capacity returns the slot count.
func (b *Bulkhead) Capacity() int {
	return cap(b.sem)
}

// Rejected returns how many acquisitions were turned away.
func (b *Bulkhead) Rejected() int64 {
	return b.rejected.Load()
}
