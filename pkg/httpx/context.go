package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyPrincipal ctxKey = "principal"
)

// UserIDFromContext returns the subject set by AuthnMiddleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CtxKeyUserID).(string)
	return id, ok && id != ""
}

// PrincipalFromContext returns the value the Authenticator resolved for the
// request's bearer token.
func PrincipalFromContext[T any](ctx context.Context) (T, bool) {
	p, ok := ctx.Value(CtxKeyPrincipal).(T)
	return p, ok
}

func contextWithPrincipal[T any](ctx context.Context, subject string, p T) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, subject)
	ctx = context.WithValue(ctx, CtxKeyPrincipal, p)
	return ctx
}
