package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/veldtlabs/passgate/internal/auth/service"
	"github.com/veldtlabs/passgate/pkg/authsdk"
	"github.com/veldtlabs/passgate/pkg/httpx"
	"github.com/veldtlabs/passgate/pkg/slogx"
)

// IntrospectHandler serves POST /v1/oauth2/introspect following RFC 7662.
// The route is reserved for third-party machine clients holding the
// introspect scope; the guard in the router enforces that. Introspection
// consults the token row, so revoked tokens report inactive even while their
// signature is still valid.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Introspects a token and returns metadata about it (RFC 7662). Requires a client_credentials token with the introspect scope.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			token			formData	string							true	"The token to introspect"
//	@Param			token_type_hint	formData	string							false	"Hint about token type (only access_token is supported)"	Enums(access_token)
//	@Success		200				{object}	authsdk.IntrospectionResponse	"Token introspection result"
//	@Failure		400				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		403				{string}	string							"insufficient_scope"
//	@Header			200				{string}	Cache-Control					"no-store"
//	@Header			200				{string}	Pragma							"no-cache"
//	@Router			/v1/oauth2/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Ensure the right content-type
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	// 2. Parse the form body
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := r.Form.Get("token")
	tokenTypeHint := r.Form.Get("token_type_hint")

	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	// 3. Unknown hints introspect as inactive per RFC 7662.
	if tokenTypeHint != "" && tokenTypeHint != "access_token" {
		writeInactiveResponse(w)
		return
	}

	row, err := h.TokenService.Introspect(ctx, token)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidToken) {
			log.Error("introspection lookup failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
			return
		}
		// Inactive tokens never reveal why.
		writeInactiveResponse(w)
		return
	}

	subject := row.UserID
	if subject == "" {
		subject = row.ClientID
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{
		Active:    true,
		Scope:     strings.Join(row.Scopes, " "),
		ClientID:  row.ClientID,
		TokenType: "Bearer",
		Exp:       row.ExpiresAt.Unix(),
		Sub:       subject,
		Jti:       row.ID,
	})
}

func writeInactiveResponse(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
}
