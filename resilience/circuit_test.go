package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
		Now:          clock.Now,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	errDown := errors.New("identity service down")
	fail := func(context.Context) error { return errDown }
	ok := func(context.Context) error { return nil }
	ctx := context.Background()

	if err := cb.Execute(ctx, fail); !errors.Is(err, errDown) {
		t.Fatalf("Execute() = %v, want %v", err, errDown)
	}
	if cb.State() != StateClosed {
		t.Fatalf("State() = %v, want closed after one failure", cb.State())
	}
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("Execute() while open = %v (called %v), want ErrCircuitOpen without calling", err, called)
	}

	clock.Advance(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want half-open", cb.State())
	}
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open after failed probe", cb.State())
	}

	clock.Advance(time.Minute)
	if err := cb.Execute(ctx, ok); err != nil {
		t.Fatalf("probe Execute() = %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("State() = %v, want closed after good probe", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	ctx := context.Background()
	errX := errors.New("x")

	_ = cb.Execute(ctx, func(context.Context) error { return errX })
	_ = cb.Execute(ctx, func(context.Context) error { return nil })
	_ = cb.Execute(ctx, func(context.Context) error { return errX })

	if m := cb.Metrics(); m.State != StateClosed || m.Failures != 1 {
		t.Errorf("Metrics() = %+v, want closed with 1 failure", m)
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	errIgnored := errors.New("credential rejected")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, errIgnored) },
	})

	_ = cb.Execute(context.Background(), func(context.Context) error { return errIgnored })
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("State() after Reset = %v, want closed", cb.State())
	}
}
