package context

import "context"

// Operator identifies who triggered an allocation or an administrative change.
// Document-creation services set it from their own auth layer; the numbering
// engine only reads it for logging.
type Operator struct {
	ID        string
	CompanyID string
	Source    string // e.g. "seqctl", "invoice-service"
}

type operatorKey struct{}

// WithOperator adds Operator to context.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// GetOperator returns Operator from context.
func GetOperator(ctx context.Context) *Operator {
	if v, ok := ctx.Value(operatorKey{}).(*Operator); ok {
		return v
	}
	return nil
}

// GetOperatorID returns operator ID from context or empty string.
func GetOperatorID(ctx context.Context) string {
	if op := GetOperator(ctx); op != nil {
		return op.ID
	}
	return ""
}
