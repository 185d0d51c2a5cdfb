package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/service"
	"github.com/veldtlabs/passgate/pkg/authsdk"
	"github.com/veldtlabs/passgate/pkg/httpx"
	"github.com/veldtlabs/passgate/pkg/slogx"
)

// PersonalTokensHandler serves the authenticated personal access token
// endpoints under /v1/tokens. Every operation acts on the current user's
// tokens only; ids belonging to other users 404.
type PersonalTokensHandler struct {
	Personal *service.PersonalTokenService
}

// HandleList godoc
//
//	@Summary		List Personal Access Tokens
//	@Description	Returns the authenticated user's personal access tokens, oldest first, each with its issuing client attached. The signed credentials are not included.
//	@Tags			Tokens
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.PersonalTokenList	"tokens"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/tokens [get].
func (h *PersonalTokensHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	tokens, err := h.Personal.ListForUser(ctx, userID)
	if err != nil {
		log.Error("failed to list personal tokens", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	records := make([]authsdk.PersonalTokenRecord, 0, len(tokens))
	for _, t := range tokens {
		rec := tokenRecord(t.Token)
		rec.Client = &authsdk.PersonalTokenClient{
			ID:             t.Client.ID,
			Name:           t.Client.Name,
			PersonalAccess: t.Client.PersonalAccess,
			FirstParty:     t.Client.FirstParty,
		}
		records = append(records, rec)
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.PersonalTokenList{Tokens: records})
}

// HandleCreate godoc
//
//	@Summary		Create Personal Access Token
//	@Description	Mints a new personal access token for the authenticated user. The signed credential is returned once and cannot be retrieved again.
//	@Tags			Tokens
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.PersonalTokenRequest	true	"Token name and scopes"
//	@Success		201		{object}	authsdk.PersonalTokenCreated	"token, access_token"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Malformed request body"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		422		{object}	authsdk.ValidationErrorResponse	"Per-field validation errors"
//	@Failure		500		{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/v1/tokens [post].
func (h *PersonalTokensHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.PersonalTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	issued, err := h.Personal.Create(ctx, userID, req.Name, req.Scopes)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			httpx.WriteJSON(w, http.StatusUnprocessableEntity,
				authsdk.ValidationErrorResponse{Errors: verr.Fields})
			return
		}
		log.Error("failed to create personal token", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.PersonalTokenCreated{
		Token:       tokenRecord(issued.Token),
		AccessToken: issued.AccessToken,
	})
}

// HandleRevoke godoc
//
//	@Summary		Revoke Personal Access Token
//	@Description	Revokes one of the authenticated user's personal access tokens. The record is kept as revoked, not deleted. Ids belonging to another user return 404.
//	@Tags			Tokens
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Token id"
//	@Success		200	"Token revoked"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	"Token does not exist or is not owned by the user"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/tokens/{id} [delete].
func (h *PersonalTokensHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	tokenID := r.PathValue("id")
	if tokenID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	err := h.Personal.Revoke(ctx, userID, tokenID)
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		log.Error("failed to revoke personal token", "user_id", userID, "token_id", tokenID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func tokenRecord(t domain.Token) authsdk.PersonalTokenRecord {
	return authsdk.PersonalTokenRecord{
		ID:        t.ID,
		Name:      t.Name,
		ClientID:  t.ClientID,
		Scopes:    t.Scopes,
		Revoked:   t.Revoked,
		ExpiresAt: t.ExpiresAt.Unix(),
		CreatedAt: t.CreatedAt.Unix(),
	}
}
