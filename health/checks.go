package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/honeyid/resilience"
	"github.com/jonwraymond/honeyid/wsrpc"
)

// Pinger is a backing store that answers a round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingCheck reports unhealthy while p.Ping fails.
func NewPingCheck(name string, p Pinger) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("ping failed", fmt.Errorf("%w: %w", ErrCheckFailed, err))
		}
		return Healthy("ping ok")
	})
}

// NewDialCheck opens and closes a WebSocket connection to addr.
func NewDialCheck(name, addr string, opts ...wsrpc.DialOption) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		conn, err := wsrpc.Dial(ctx, addr, "", opts...)
		if err != nil {
			return Unhealthy("identity service unreachable", fmt.Errorf("%w: %w", ErrCheckFailed, err)).
				WithDetails(map[string]any{"addr": addr})
		}
		_ = conn.Close()
		return Healthy("identity service reachable").WithDetails(map[string]any{"addr": addr})
	})
}

// NewBreakerCheck mirrors a circuit breaker: open is unhealthy, half-open is
// degraded.
func NewBreakerCheck(name string, cb *resilience.CircuitBreaker) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		m := cb.Metrics()
		details := map[string]any{"state": m.State.String(), "failures": m.Failures}
		if !m.LastFailure.IsZero() {
			details["last_failure"] = m.LastFailure.UTC()
		}
		switch m.State {
		case resilience.StateOpen:
			return Unhealthy("circuit open", ErrCheckFailed).WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("circuit half-open").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}

// Counter is anything that reports how many entries it holds.
type Counter interface {
	Len() int
}

// NewTokenStoreCheck reports how many access tokens are held. Token stores
// live in memory, so the check itself never fails.
func NewTokenStoreCheck(name string, s Counter) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		return Healthy("token store ready").WithDetails(map[string]any{"tokens": s.Len()})
	})
}

// NewServerCheck reports open connections on the App server. With limit > 0
// it is degraded at 90% of limit and unhealthy at limit.
func NewServerCheck(name string, s Counter, limit int) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		n := s.Len()
		details := map[string]any{"connections": n}
		if limit <= 0 {
			return Healthy("accepting connections").WithDetails(details)
		}
		details["max_connections"] = limit
		switch {
		case n >= limit:
			return Unhealthy("connection limit reached", ErrCheckFailed).WithDetails(details)
		case n*10 >= limit*9:
			return Degraded("near connection limit").WithDetails(details)
		default:
			return Healthy("accepting connections").WithDetails(details)
		}
	})
}
