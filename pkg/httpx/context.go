package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyClientID ctxKey = "client_id"
	CtxKeyTokenID  ctxKey = "token_id"
	CtxKeyScopes   ctxKey = "scopes"
)

func contextWithAccess(ctx context.Context, tok AccessToken) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, tok.UserID)
	ctx = context.WithValue(ctx, CtxKeyClientID, tok.ClientID)
	ctx = context.WithValue(ctx, CtxKeyTokenID, tok.ID)
	ctx = context.WithValue(ctx, CtxKeyScopes, tok.Scopes)
	return ctx
}

// UserIDFromContext returns the authenticated user id, or "" when the
// request did not pass through AuthnMiddleware.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

func ScopesFromContext(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
