package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/service"
	"github.com/veldtlabs/passgate/pkg/authsdk"
	"github.com/veldtlabs/passgate/pkg/httpx"
	"github.com/veldtlabs/passgate/pkg/slogx"
)

// TokenHandler serves POST /v1/oauth2/token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues access tokens using OAuth2 grant types (password, client_credentials).
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(password, client_credentials)
//	@Param			client_id		formData	string					true	"Client identifier (required for all grants)"
//	@Param			client_secret	formData	string					false	"Client secret (required for confidential clients)"
//	@Param			username		formData	string					false	"Resource owner login (required for password grant)"
//	@Param			password		formData	string					false	"Resource owner password (required for password grant)"
//	@Param			scope			formData	string					false	"Space-delimited list of scopes"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/v1/oauth2/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	// 3. Handle the grant type
	switch r.Form.Get("grant_type") {
	case "password":
		h.handlePasswordGrant(w, r, r.Form)
	case "client_credentials":
		h.handleClientCredentialsGrant(w, r, r.Form)
	default:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handlePasswordGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")
	username := strings.TrimSpace(form.Get("username"))
	password := form.Get("password")
	scopes := httpx.ParseSpaceDelimitedFields(form.Get("scope"))

	if clientID == "" || username == "" || password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	issued, err := h.TokenService.IssuePasswordGrant(ctx, clientID, clientSecret, username, password, scopes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrUnauthorizedClient):
			authsdk.ErrUnauthorizedClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidGrant):
			authsdk.ErrInvalidGrant.WriteError(w)
		case errors.Is(err, service.ErrInvalidScope):
			authsdk.ErrInvalidScope.WriteError(w)
		default:
			log.Error("password grant failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	writeTokenResponse(w, issued)
}

func (h *TokenHandler) handleClientCredentialsGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")
	scopes := httpx.ParseSpaceDelimitedFields(form.Get("scope"))

	if clientID == "" || clientSecret == "" {
		authsdk.ErrInvalidClient.WriteError(w)
		return
	}

	issued, err := h.TokenService.IssueClientCredentials(ctx, clientID, clientSecret, scopes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrUnauthorizedClient):
			authsdk.ErrUnauthorizedClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidScope):
			authsdk.ErrInvalidScope.WriteError(w)
		default:
			log.Error("client_credentials grant failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	writeTokenResponse(w, issued)
}

func writeTokenResponse(w http.ResponseWriter, issued *domain.IssuedToken) {
	expiresIn := int(issued.Token.ExpiresAt.Sub(issued.Token.CreatedAt).Seconds())

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken: issued.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Scope:       strings.Join(issued.Token.Scopes, " "),
	})
}
