package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/tjfontaine/interview-gateway/internal/pkg/config"
)

func TestInitTracer_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := InitTracer(config.TelemetryConfig{Enabled: false}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Error("disabled telemetry replaced the global tracer provider")
	}
}

func TestInitTracer_ExportsSpans(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	var buf bytes.Buffer
	shutdown, err := initTracer(config.TelemetryConfig{Enabled: true, ServiceName: "interview-gateway-test"},
		slog.New(slog.NewTextHandler(io.Discard, nil)), &buf)
	if err != nil {
		t.Fatalf("initTracer() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "gateway.GenerateQuestions")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "gateway.GenerateQuestions") {
		t.Errorf("exported spans missing span name: %s", out)
	}
	if !strings.Contains(out, "interview-gateway-test") {
		t.Errorf("exported spans missing service name: %s", out)
	}
}
