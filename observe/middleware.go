package observe

import (
	"context"
	"time"
)

// CallFunc is the signature of an instrumented RPC call.
type CallFunc func(ctx context.Context, meta EndpointMeta, input any) (any, error)

// Middleware wraps RPC calls with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a goroutine-safe CallFunc.
//   - Errors: errors from the wrapped function are recorded and propagated unchanged.
//   - Ownership: input and output values pass through untouched.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Wrap wraps fn with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn CallFunc) CallFunc {
	return func(ctx context.Context, meta EndpointMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx, meta, input)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, meta, duration, err)

		logger := m.logger.WithEndpoint(meta)
		fields := []Field{{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000}}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Warn(ctx, "rpc call failed", fields...)
		} else {
			logger.Debug(ctx, "rpc call completed", fields...)
		}

		return result, err
	}
}

// Call runs fn once through the middleware.
func (m *Middleware) Call(ctx context.Context, meta EndpointMeta, fn func(ctx context.Context) (any, error)) (any, error) {
	return m.Wrap(func(ctx context.Context, _ EndpointMeta, _ any) (any, error) {
		return fn(ctx)
	})(ctx, meta, nil)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
