package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func lastJSON(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &m), buf.String())
	return m
}

func TestParseEnv(t *testing.T) {
	require.Equal(t, EnvProd, ParseEnv(" Production "))
	require.Equal(t, EnvStage, ParseEnv("preprod"))
	require.Equal(t, EnvDev, ParseEnv(""))

	t.Setenv("APP_ENV", "staging")
	require.Equal(t, EnvStage, DetectEnv())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	require.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestInit_DevStdIsText(t *testing.T) {
	var buf bytes.Buffer
	l := Init(Config{Service: "session", Env: EnvDev, Debug: true, Out: &buf})

	l.Debug("hello", "room", "r1")
	out := buf.String()
	require.Contains(t, out, "level=DEBUG")
	require.Contains(t, out, "service=session")
	require.Contains(t, out, "room=r1")
	require.Contains(t, out, "instance_id=")
}

func TestInit_ProdStdIsJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Service: "session", Version: "1.0.0", Env: EnvProd, Backend: BackendStd, Out: &buf})

	slog.Info("ready")
	m := lastJSON(t, &buf)
	require.Equal(t, "ready", m["msg"])
	require.Equal(t, "1.0.0", m["version"])
	require.Equal(t, "prod", m["env"])
}

func TestInit_ZapBackend(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{
		Service:          "session",
		Env:              EnvProd,
		SampleInitial:    1000,
		SampleThereafter: 1000,
		Out:              &buf,
	})

	L().Warn("queue full", "conn", "c1")
	L().Debug("hidden")
	require.NoError(t, Sync())

	m := lastJSON(t, &buf)
	require.Equal(t, "queue full", m["msg"])
	require.Equal(t, "WARN", m["level"])
	require.Equal(t, "c1", m["conn"])
	require.Equal(t, "session", m["service"])
	require.NotContains(t, buf.String(), "hidden")
}

func TestFromCtx_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	base := Init(Config{Service: "session", Env: EnvProd, Backend: BackendStd, Out: &buf})

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "dispatch")
	defer span.End()

	FromCtx(ctx, base).InfoContext(ctx, "with trace")
	m := lastJSON(t, &buf)
	require.Equal(t, span.SpanContext().TraceID().String(), m["trace_id"])
	require.NotEmpty(t, m["span_id"])

	require.Same(t, base, FromCtx(context.Background(), base))
}
