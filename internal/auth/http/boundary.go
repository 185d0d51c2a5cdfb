package http

import (
	"context"

	"github.com/veldtlabs/passgate/internal/auth/service"
	"github.com/veldtlabs/passgate/pkg/httpx"
)

// tokenValidator adapts the token service's validation boundary to the
// middleware's TokenValidator interface.
type tokenValidator struct {
	tokens *service.TokenService
}

func (v *tokenValidator) ValidateBearer(ctx context.Context, raw string) (httpx.AccessToken, error) {
	access, err := v.tokens.ValidateAccess(ctx, raw)
	if err != nil {
		return httpx.AccessToken{}, err
	}
	return httpx.AccessToken{
		ID:       access.TokenID,
		UserID:   access.UserID,
		ClientID: access.ClientID,
		Scopes:   access.Scopes,
	}, nil
}

// clientDirectory adapts the client service to the scope guard's narrow
// client view.
type clientDirectory struct {
	clients *service.ClientService
}

func (d *clientDirectory) FindClientByID(ctx context.Context, id string) (httpx.ClientInfo, bool, error) {
	client, found, err := d.clients.FindByID(ctx, id)
	if err != nil || !found {
		return httpx.ClientInfo{}, found, err
	}
	return httpx.ClientInfo{
		ID:         client.ID,
		FirstParty: client.FirstParty,
		Revoked:    client.Revoked,
	}, true, nil
}
