package logging

import (
	"context"

	"go.uber.org/zap"
)

// fieldsContextKey is the context key for request-scoped log fields.
type fieldsContextKey struct{}

// ContextWithFields attaches structured fields to a context. Fields accumulate:
// attaching to a context that already carries fields appends to the existing set.
func ContextWithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	existing := ContextFields(ctx)
	merged := make([]zap.Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsContextKey{}, merged)
}

// ContextFields returns the fields attached to a context, or nil.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsContextKey{}).([]zap.Field)
	return fields
}
