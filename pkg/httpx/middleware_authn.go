package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator[T any] interface {
	Authenticate(ctx context.Context, token string) (T, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc[T any] func(ctx context.Context, token string) (T, error)

func (f AuthenticatorFunc[T]) Authenticate(ctx context.Context, token string) (T, error) {
	return f(ctx, token)
}

// BearerToken returns the token from an "Authorization: Bearer" header, or
// "" when there is none.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("Bearer "):])
}

// AuthnMiddleware rejects requests whose bearer token a cannot resolve,
// and stores the principal and its subject in the request context.
func AuthnMiddleware[T any](a Authenticator[T], subject func(T) string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := BearerToken(r)
			if raw == "" {
				WriteBearerError(w, "missing bearer token")
				return
			}

			p, err := a.Authenticate(ctx, raw)
			if err != nil {
				log.Debug("bearer authentication failed", "err", err)
				WriteBearerError(w, "not authenticated")
				return
			}

			ctx = contextWithPrincipal(ctx, subject(p), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteBearerError writes an RFC 6750 invalid_token challenge.
func WriteBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "not_authenticated", desc)
}
