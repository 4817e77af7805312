package trace

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestGeneratedIDLengths(t *testing.T) {
	if id := generateTraceID(); len(id) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(id))
	}
	if id := generateSpanID(); len(id) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(id))
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := generateTraceID()
		if seen[id] {
			t.Error("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should have new span ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be parent's span ID")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if tc.TraceID == "" {
		t.Fatal("expected a fresh trace")
	}
	_, again := EnsureContext(ctx)
	if again != tc {
		t.Error("existing trace context should be reused")
	}
}

func TestStartSpanNested(t *testing.T) {
	ctx, outer := StartSpan(context.Background(), "capture_cycle")
	_, inner := StartSpan(ctx, "recognize")

	if inner.Ctx.TraceID != outer.Ctx.TraceID {
		t.Error("nested span should share the trace")
	}
	if inner.Ctx.ParentSpanID != outer.Ctx.SpanID {
		t.Error("nested span should point at its parent")
	}
	if outer.Duration() != 0 {
		t.Error("unfinished span has no duration")
	}
	outer.End()
	if outer.Duration() < 0 {
		t.Error("duration should not be negative")
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoggerCarriesTraceAndAttrs(t *testing.T) {
	buf := captureLogs(t)

	ctx, span := StartSpan(context.Background(), "capture_cycle")
	ctx = WithAttrs(ctx, "cycle_id", "c-1")
	ctx = WithAttrs(ctx, "package", "com.ubercab.driver")
	Logger(ctx).Info("trigger accepted")

	out := buf.String()
	for _, want := range []string{"trace_id=" + span.Ctx.TraceID, "cycle_id=c-1", "package=com.ubercab.driver"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestLoggerWithoutContext(t *testing.T) {
	if Logger(context.Background()) != slog.Default() {
		t.Error("bare context should use the default logger")
	}
}

func TestSpanFinish(t *testing.T) {
	buf := captureLogs(t)

	ctx, span := StartSpan(context.Background(), "recognize")
	span.SetAttr("lines", 3)
	span.Finish(ctx, nil)
	if !strings.Contains(buf.String(), "span finished") || !strings.Contains(buf.String(), "span.lines=3") {
		t.Errorf("unexpected log %q", buf.String())
	}

	buf.Reset()
	span.Finish(ctx, errors.New("ocr down"))
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "ocr down") {
		t.Errorf("unexpected log %q", buf.String())
	}
}

func TestInjectMetadata(t *testing.T) {
	tc := New()
	ctx := metadata.AppendToOutgoingContext(WithContext(context.Background(), tc), "x-other", "1")
	md, _ := metadata.FromOutgoingContext(injectMetadata(ctx))

	if got := md.Get(TraceIDKey); len(got) != 1 || got[0] != tc.TraceID {
		t.Errorf("trace id metadata = %v", got)
	}
	if got := md.Get("x-other"); len(got) != 1 {
		t.Error("existing metadata should survive")
	}
}

func TestMiddleware(t *testing.T) {
	var seen Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(TraceIDKey, "abc")
	req.Header.Set(SpanIDKey, "parent")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.TraceID != "abc" || seen.ParentSpanID != "parent" {
		t.Errorf("context = %+v", seen)
	}
	if rec.Header().Get(TraceIDKey) != "abc" {
		t.Error("trace id should be echoed")
	}
}

func TestExtractFromJSON(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"type":"hide","trace_id":"t-9"}`))
	if !ok || tc.TraceID != "t-9" {
		t.Errorf("got %+v, %v", tc, ok)
	}
	if _, ok := ExtractFromJSON([]byte(`{"type":"hide"}`)); ok {
		t.Error("missing trace_id should report false")
	}
	if _, ok := ExtractFromJSON([]byte(`not json`)); ok {
		t.Error("invalid JSON should report false")
	}
}
