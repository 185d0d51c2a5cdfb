package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/veldtlabs/passgate/pkg/slogx"
)

// AccessToken is the boundary value produced by token validation: the
// identifiers and scopes attached to an authenticated request.
type AccessToken struct {
	ID       string // token record id (jti)
	UserID   string // empty for client_credentials tokens
	ClientID string
	Scopes   []string
}

// TokenValidator is the token-validation boundary. Implementations verify a
// raw bearer credential (signature, expiry, revocation) and return the
// attached metadata, or an error for anything invalid.
type TokenValidator interface {
	ValidateBearer(ctx context.Context, raw string) (AccessToken, error)
}

// BearerFromRequest extracts the bearer credential from the Authorization
// header. This is the only place the validation subsystem touches the host
// request shape.
func BearerFromRequest(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer")), true
}

// AuthnMiddleware authenticates user-facing endpoints: it validates the
// bearer token and injects the access metadata into the request context.
func AuthnMiddleware(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerFromRequest(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			tok, err := v.ValidateBearer(ctx, raw)
			if err != nil {
				writeBearerError(w, "token validation failed")
				log.Warn("bearer validation failed", "err", err)
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithAccess(ctx, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
