package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// 使用内存exporter代替OTLP，测试不依赖Jaeger
func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestInitTracer(t *testing.T) {
	// otlptracegrpc延迟建立连接，没有collector也能初始化成功
	shutdown, err := InitTracer("stock-ledger-test", "localhost:4317")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestStartSpan_ParentChild(t *testing.T) {
	recorder := setupRecorder(t)

	ctx, parent := StartSpan(context.Background(), LedgerTracer, "ApproveAdjustment")
	_, child := StartSpan(ctx, LedgerTracer, "ApplyPhysicalStock")
	child.End()
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ApplyPhysicalStock", spans[0].Name())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestEnd_RecordsError(t *testing.T) {
	recorder := setupRecorder(t)

	_, span := StartSpan(context.Background(), LedgerTracer, "Reserve")
	span.SetAttributes(attribute.Int("product_id", 7))
	End(span, errors.New("可用库存不足"))

	_, okSpan := StartSpan(context.Background(), LedgerTracer, "ValidateStock")
	End(okSpan, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}

func TestExtractIDs(t *testing.T) {
	assert.Empty(t, ExtractTraceID(context.Background()))
	assert.Empty(t, ExtractSpanID(context.Background()))

	setupRecorder(t)
	ctx, span := StartSpan(context.Background(), LedgerTracer, "FulfillOrder")
	defer span.End()

	assert.Len(t, ExtractTraceID(ctx), 32)
	assert.Len(t, ExtractSpanID(ctx), 16)
}
