package observe

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Side values for EndpointMeta.
const (
	SideClient = "client"
	SideServer = "server"
)

// EndpointMeta identifies an RPC endpoint for telemetry purposes.
type EndpointMeta struct {
	Method uint32 // Wire method code
	Name   string // Endpoint name, e.g. "SubmitUsername"
	Side   string // SideClient or SideServer
}

// SpanName returns the span name: honeyid.rpc.<name>.
func (m EndpointMeta) SpanName() string {
	if m.Name == "" {
		return "honeyid.rpc.method_" + strconv.FormatUint(uint64(m.Method), 10)
	}
	return "honeyid.rpc." + m.Name
}

// Tracer wraps OpenTelemetry tracing with endpoint span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta EndpointMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta EndpointMeta) (context.Context, trace.Span) {
	kind := trace.SpanKindServer
	if meta.Side == SideClient {
		kind = trace.SpanKindClient
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(
			attribute.String("rpc.system", "honeyid"),
			attribute.Int64("rpc.method_code", int64(meta.Method)),
			attribute.String("rpc.endpoint", meta.Name),
			attribute.Bool("rpc.error", false),
		),
		trace.WithSpanKind(kind),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("rpc.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta EndpointMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
