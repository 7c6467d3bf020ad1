// Package resilience provides opt-in retry, timeout, circuit breaking and
// concurrency limits for calls to the identity service.
//
// Nothing in honeyid retries or times out on its own. Callers choose a
// policy and wrap the operation:
//
//	dial := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	)
//	conn, err := resilience.Run(ctx, dial, func(ctx context.Context) (*wsrpc.ClientConn, error) {
//	    return wsrpc.Dial(ctx, addr, subprotocol)
//	})
//
// Retry only what is safe to repeat. Transport faults during dialing are;
// credential and protocol failures are not.
package resilience
