package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStartSpan_Disabled(t *testing.T) {
	if err := Init(Config{Enabled: false}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "noop")
	span.End()

	if TraceID(ctx) != "" {
		t.Error("expected no trace id with tracing disabled")
	}
}

func TestStartSpan_Exports(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Enabled: true, ServiceName: "test", Output: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "simulation.run")
	if TraceID(ctx) == "" {
		t.Error("expected a trace id")
	}
	span.End()

	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if !strings.Contains(buf.String(), "simulation.run") {
		t.Errorf("exported output missing span name: %s", buf.String())
	}

	// Second shutdown is a no-op.
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown failed: %v", err)
	}
}
