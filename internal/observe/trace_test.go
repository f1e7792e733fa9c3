package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exp
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCorrelationID_EmptyOutsideTrace(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Fatalf("CorrelationID = %q, want empty", got)
	}
}

func TestCorrelationID_IsSpanTraceID(t *testing.T) {
	tp, _ := newTestTracer(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Fatalf("correlation id = %q, want 32 hex chars", cid)
	}
	if cid != span.SpanContext().TraceID().String() {
		t.Errorf("correlation id = %q, want trace id %q", cid, span.SpanContext().TraceID())
	}
}

func TestStartSpan_UsesGlobalProvider(t *testing.T) {
	tp, exp := newTestTracer(t)
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })

	ctx, span := StartSpan(context.Background(), "synthesize")
	if CorrelationID(ctx) == "" {
		t.Fatal("span carries no trace id")
	}
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "synthesize" {
		t.Fatalf("spans = %+v, want one named %q", spans, "synthesize")
	}
}

func TestLogger_StampsTraceAndSpanIDs(t *testing.T) {
	tp, _ := newTestTracer(t)
	buf := captureLogs(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	Logger(ctx).Info("queued utterance")

	out := buf.String()
	if !strings.Contains(out, "trace_id=") || !strings.Contains(out, "span_id=") {
		t.Fatalf("log line missing trace attrs: %s", out)
	}
}

func TestLogger_PlainOutsideTrace(t *testing.T) {
	buf := captureLogs(t)

	Logger(context.Background()).Info("queued utterance")

	if out := buf.String(); strings.Contains(out, "trace_id") {
		t.Fatalf("log line unexpectedly carries trace_id: %s", out)
	}
}
