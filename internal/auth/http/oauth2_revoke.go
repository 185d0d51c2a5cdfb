package http

import (
	"net/http"
	"strings"

	"github.com/veldtlabs/passgate/internal/auth/service"
	"github.com/veldtlabs/passgate/pkg/authsdk"
	"github.com/veldtlabs/passgate/pkg/httpx"
	"github.com/veldtlabs/passgate/pkg/slogx"
)

// RevokeHandler serves POST /v1/oauth2/revoke following RFC 7009. Revocation
// flips the token row's revoked flag; the row is kept. All tokens, even
// invalid or unknown ones, return 200 OK to prevent token scanning attacks.
type RevokeHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes a previously issued access token (RFC 7009).
//	@Description	The endpoint is idempotent and returns 200 OK even for invalid/unknown tokens to prevent token scanning attacks.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string	true	"The token to revoke"
//	@Param			token_type_hint	formData	string	false	"Hint about token type"	Enums(access_token)
//	@Success		200				"Token revoked successfully (or was already invalid)"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/v1/oauth2/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	// 3. Only access tokens exist here; any other hint is a no-op.
	if tokenTypeHint == "" || tokenTypeHint == "access_token" {
		if err := h.TokenService.Revoke(ctx, token); err != nil {
			// Per RFC 7009 the server responds 200 OK even when revocation
			// could not identify the token.
			log.Warn("token revocation failed", "err", err)
		}
	}

	// 4. Return 200 OK with empty body per spec
	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
