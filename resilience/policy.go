package resilience

import (
	"context"
	"sync"
)

// Policy runs an operation under some resilience rule.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: implementations must stop waiting when ctx is done.
type Policy interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Run executes fn under p and returns the value of the attempt that
// succeeded. A nil policy runs fn once. On error the zero value is returned,
// and attempts still running after a policy gave up never publish a value.
func Run[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}
	var (
		mu  sync.Mutex
		out T
	)
	err := p.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	mu.Lock()
	defer mu.Unlock()
	return out, nil
}

var (
	_ Policy = (*Retry)(nil)
	_ Policy = (*Timeout)(nil)
	_ Policy = (*CircuitBreaker)(nil)
	_ Policy = (*Bulkhead)(nil)
	_ Policy = (*Executor)(nil)
)
