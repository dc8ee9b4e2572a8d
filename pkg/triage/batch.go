package triage

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/sfioritto/inbox-triage/pkg/errors"
)

// Batcher issues a bounded number of oracle calls concurrently per batch,
// staggered within the batch to spread request starts, and strictly
// sequential across batches. If any task in a batch fails after retries,
// the whole run aborts; there is no partial-batch recovery.
type Batcher struct {
	// Size is the maximum number of concurrent tasks per batch.
	Size int

	// Stagger is the artificial delay before task i of a batch starts:
	// i * Stagger. This spreads request starts past provider burst
	// limits without serializing the batch.
	Stagger time.Duration
}

// DefaultBatcher mirrors the canonical tuning: 20 concurrent calls,
// 30ms apart.
func DefaultBatcher() Batcher {
	return Batcher{Size: 20, Stagger: 30 * time.Millisecond}
}

// NumBatches returns the number of batches n items partition into.
func (b Batcher) NumBatches(n int) int {
	if n <= 0 {
		return 0
	}
	size := b.Size
	if size <= 0 {
		size = 1
	}
	return (n + size - 1) / size
}

// Run executes task for each index in [0, n). All tasks of a batch are
// launched together and the batch settles fully before the next starts.
// The first task error is returned after its batch settles.
func (b Batcher) Run(ctx context.Context, n int, task func(ctx context.Context, index int) error) error {
	size := b.Size
	if size <= 0 {
		size = 1
	}

	for start := 0; start < n; start += size {
		if err := errors.CheckContext(ctx, "batch execution"); err != nil {
			return err
		}

		end := start + size
		if end > n {
			end = n
		}

		p := pool.New().WithContext(ctx).WithFirstError()
		for i := start; i < end; i++ {
			index := i
			offset := time.Duration(index-start) * b.Stagger
			p.Go(func(ctx context.Context) error {
				if offset > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(offset):
					}
				}
				return task(ctx, index)
			})
		}

		if err := p.Wait(); err != nil {
			return err
		}
	}

	return nil
}
