package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_NoPolicies(t *testing.T) {
	calls := 0
	err := NewExecutor().Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("Execute() = %v with %d calls, want nil with 1", err, calls)
	}
}

func TestExecutor_RetryFeedsBreaker(t *testing.T) {
	errDial := errors.New("connection refused")
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  5,
			InitialDelay: time.Millisecond,
			Strategy:     BackoffConstant,
			RetryIf:      func(err error) bool { return errors.Is(err, errDial) },
		})),
	)

	calls := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return errDial
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() = %v, want ErrCircuitOpen once the breaker trips", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if e.CircuitBreaker() != cb {
		t.Error("CircuitBreaker() did not return the configured breaker")
	}
}

func TestExecutor_TimeoutPerAttempt(t *testing.T) {
	e := NewExecutor(
		WithTimeout(10*time.Millisecond),
		WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			RetryIf:      func(err error) bool { return errors.Is(err, ErrTimeout) },
		})),
	)

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRun(t *testing.T) {
	got, err := Run(context.Background(), NewExecutor(WithBulkhead(NewBulkhead(1, 0))), func(context.Context) (string, error) {
		return "conn", nil
	})
	if err != nil || got != "conn" {
		t.Errorf("Run() = (%q, %v), want (conn, nil)", got, err)
	}

	errX := errors.New("x")
	got, err = Run(context.Background(), nil, func(context.Context) (string, error) { return "partial", errX })
	if !errors.Is(err, errX) || got != "partial" {
		t.Errorf("Run(nil policy) = (%q, %v), want (partial, x)", got, err)
	}
}

func TestRun_TimeoutDiscardsLateResult(t *testing.T) {
	got, err := Run(context.Background(), NewTimeout(5*time.Millisecond), func(context.Context) (int, error) {
		time.Sleep(20 * time.Millisecond)
		return 42, nil
	})
	if !errors.Is(err, ErrTimeout) || got != 0 {
		t.Errorf("Run() = (%d, %v), want (0, ErrTimeout)", got, err)
	}
	// The abandoned attempt finishes after Run returned.
	time.Sleep(40 * time.Millisecond)
}

func TestRun_RetryKeepsSucceedingAttempt(t *testing.T) {
	var calls atomic.Int32
	ex := NewExecutor(
		WithTimeout(10*time.Millisecond),
		WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			RetryIf:      func(error) bool { return true },
		})),
	)
	got, err := Run(context.Background(), ex, func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			time.Sleep(40 * time.Millisecond)
			return 1, nil
		}
		return 2, nil
	})
	if err != nil || got != 2 {
		t.Errorf("Run() = (%d, %v), want (2, nil)", got, err)
	}
	time.Sleep(50 * time.Millisecond)
}
