package cctx

import (
	"context"

	"go.uber.org/zap"
)

// WithValues stores key/value pairs on the context.
func WithValues(parent context.Context, values ...interface{}) (ctx context.Context) {
	if len(values)%2 != 0 {
		panic("uneven")
	}

	ctx = parent
	for i := 0; i < len(values); i += 2 {
		ctx = context.WithValue(ctx, values[i], values[i+1])
	}
	return
}

// String returns the string stored under key, or "" when absent.
func String(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// Fields turns the request values into log fields, skipping empty ones.
func Fields(ctx context.Context) (fields []zap.Field) {
	for _, key := range []ContextKey{ClientIP, Passphrase, Role} {
		if v := String(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	return
}
