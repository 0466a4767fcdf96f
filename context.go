package hrm

import "context"

type ctxKey string

const ctxKeySkipAuth ctxKey = "hrm_skip_auth"

// WithoutAuth marks the request context so the transport sends the request
// undecorated and skips 401 repair, even if a Credential exists.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeySkipAuth, true)
}

// SkipAuth reports whether the context was marked with WithoutAuth.
func SkipAuth(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeySkipAuth).(bool)
	return v
}
