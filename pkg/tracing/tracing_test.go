package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestParseAttributes(t *testing.T) {
	got := ParseAttributes(" service.namespace=fileflow, broken ,team = storage,,")
	assert.Equal(t, map[string]string{
		"service.namespace": "fileflow",
		"team":              "storage",
	}, got)

	assert.Empty(t, ParseAttributes(""))
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "fileflow"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer())
}

func TestForceFlushExportsBatchedSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer().Start(context.Background(), "ingestion.Process")
	span.End()

	require.NoError(t, ForceFlush(context.Background()))
	assert.Len(t, exp.GetSpans(), 1)
}

func TestForceFlushWithoutSDKProvider(t *testing.T) {
	assert.NoError(t, ForceFlush(context.Background()))
}
