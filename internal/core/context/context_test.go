package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestOperatorRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetOperatorID(ctx))

	ctx = WithOperator(ctx, &Operator{ID: "cashier-7", Source: "pos"})
	assert.Equal(t, "cashier-7", GetOperatorID(ctx))
	assert.Equal(t, "pos", GetOperator(ctx).Source)
}

func TestTraceContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetTrace(ctx))
	assert.Empty(t, GetRequestID(ctx))

	tc := NewTraceContext(ctx)
	ctx = WithTrace(ctx, tc)
	assert.Equal(t, tc.RequestID, GetRequestID(ctx))
	assert.NotEqual(t, tc.TraceID, tc.RequestID)
}

func TestTraceContext_ReusesSpanTraceID(t *testing.T) {
	traceID := trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tc := NewTraceContext(ctx)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", tc.TraceID)
}
