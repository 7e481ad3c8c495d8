package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "docnum/internal/core/context"
)

func TestFromContext_EnrichesOperatorAndTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{zap.New(core).Sugar()}

	ctx := WithLogger(context.Background(), l)
	ctx = appctx.WithOperator(ctx, &appctx.Operator{ID: "admin-1", Source: "seqctl"})
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})

	Info(ctx, "sequence counter reset", "sequence", "c/b/invoice")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "admin-1", fields["operator_id"])
		assert.Equal(t, "r-1", fields["request_id"])
		assert.Equal(t, "c/b/invoice", fields["sequence"])
		assert.NotContains(t, fields, "operator_company_id")
	}

	ctx = appctx.WithOperator(ctx, &appctx.Operator{ID: "cashier-7", CompanyID: "acme", Source: "pos"})
	Info(ctx, "document number allocated")
	if entries := logs.All(); assert.Len(t, entries, 2) {
		assert.Equal(t, "acme", entries[1].ContextMap()["operator_company_id"])
	}
}

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	l, err := New(Config{Level: "verbose", OutputPaths: []string{"stderr"}})
	assert.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zap.InfoLevel))
}
