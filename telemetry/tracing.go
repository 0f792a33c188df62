// OpenTelemetry tracing support for tool run observability.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps OpenTelemetry tracing with tool-run helpers.
type Tracer struct {
	tracer trace.Tracer
	debug  bool // When true, include command and output in span attributes
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: trace.NewNoopTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a new tracer with the given name.
func NewTracer(name string, debug bool) *Tracer {
	return &Tracer{
		tracer: otel.Tracer(name),
		debug:  debug,
	}
}

// SetDebug enables or disables debug mode (output in spans).
func (t *Tracer) SetDebug(debug bool) {
	t.debug = debug
}

// Debug returns whether debug mode is enabled.
func (t *Tracer) Debug() bool {
	return t.debug
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// --- Run Spans ---

// RunSpanOptions contains options for tool run spans.
type RunSpanOptions struct {
	RunID    string
	Reason   string
	Success  bool
	TimedOut bool
	ExitCode *int
	Duration time.Duration
	Command  string // Only included if debug=true
	Stdout   string // Only included if debug=true
	Stderr   string // Only included if debug=true
}

// StartRunSpan starts a span for a tool run.
func (t *Tracer) StartRunSpan(ctx context.Context, toolID string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "run."+toolID, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("run.tool_id", toolID))
	return ctx, span
}

// EndRunSpan ends a run span with attributes.
func (t *Tracer) EndRunSpan(span trace.Span, opts RunSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("run.id", opts.RunID),
		attribute.String("run.reason", opts.Reason),
		attribute.Bool("run.success", opts.Success),
		attribute.Bool("run.timed_out", opts.TimedOut),
		attribute.Int64("run.duration_ms", opts.Duration.Milliseconds()),
	}

	if opts.ExitCode != nil {
		attrs = append(attrs, attribute.Int("run.exit_code", *opts.ExitCode))
	}

	if t.debug {
		if opts.Command != "" {
			attrs = append(attrs, attribute.String("run.command", truncate(opts.Command, 1000)))
		}
		if opts.Stdout != "" {
			attrs = append(attrs, attribute.String("run.stdout", truncate(opts.Stdout, 4000)))
		}
		if opts.Stderr != "" {
			attrs = append(attrs, attribute.String("run.stderr", truncate(opts.Stderr, 4000)))
		}
	}

	span.SetAttributes(attrs...)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// --- Context Propagation ---

// InjectContext injects trace context into a carrier for cross-process propagation.
func InjectContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// ExtractContext extracts trace context from a carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
