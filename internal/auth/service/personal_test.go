package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/store"
)

func newTestPersonalService(t *testing.T, st store.Store) (*PersonalTokenService, domain.Client) {
	t.Helper()

	tokens := newTestTokenService(t, st)
	personalClient := seedClient(t, st, domain.Client{
		Name:           "Personal Access Client",
		Scopes:         []string{ScopeWildcard},
		FirstParty:     true,
		PersonalAccess: true,
	})

	return &PersonalTokenService{
		Store:    st,
		Tokens:   tokens,
		Scopes:   tokens.Scopes,
		ClientID: personalClient.ID,
		TTL:      24 * time.Hour,
	}, personalClient
}

func TestPersonalTokenCreate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, personalClient := newTestPersonalService(t, st)
	user := seedUser(t, st, "alice@example.com", "hunter2hunter2")

	t.Run("creates and signs a token", func(t *testing.T) {
		issued, err := svc.Create(ctx, user.ID, "CI deploy key", []string{"orders:read"})
		require.NoError(t, err)
		require.NotEmpty(t, issued.AccessToken)
		require.Equal(t, "CI deploy key", issued.Token.Name)
		require.Equal(t, personalClient.ID, issued.Token.ClientID)
		require.Equal(t, user.ID, issued.Token.UserID)

		access, err := svc.Tokens.ValidateAccess(ctx, issued.AccessToken)
		require.NoError(t, err)
		require.Equal(t, issued.Token.ID, access.TokenID)
	})

	t.Run("wildcard scope is allowed", func(t *testing.T) {
		issued, err := svc.Create(ctx, user.ID, "root token", []string{ScopeWildcard})
		require.NoError(t, err)
		require.Equal(t, []string{ScopeWildcard}, issued.Token.Scopes)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, user.ID, "   ", []string{"orders:read"})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "name")
	})

	t.Run("overlong name rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, user.ID, strings.Repeat("x", MaxPersonalTokenNameLength+1), []string{"orders:read"})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "name")
	})

	t.Run("name at the limit accepted", func(t *testing.T) {
		_, err := svc.Create(ctx, user.ID, strings.Repeat("x", MaxPersonalTokenNameLength), []string{"orders:read"})
		require.NoError(t, err)
	})

	t.Run("empty scopes rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, user.ID, "no scopes", nil)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "scopes")
	})

	t.Run("unknown scope rejected with the offending ids", func(t *testing.T) {
		_, err := svc.Create(ctx, user.ID, "bad scopes", []string{"orders:read", "no:such"})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields["scopes"], "no:such")
	})

	t.Run("both violations reported together", func(t *testing.T) {
		_, err := svc.Create(ctx, user.ID, "", nil)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 2)
	})
}

func TestPersonalTokenList(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newTestPersonalService(t, st)
	user := seedUser(t, st, "alice@example.com", "hunter2hunter2")
	other := seedUser(t, st, "bob@example.com", "hunter2hunter2")

	first, err := svc.Create(ctx, user.ID, "first", []string{"orders:read"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, user.ID, "second", []string{"orders:write"})
	require.NoError(t, err)

	// A grant-issued session token must not appear in the personal list.
	webClient := seedConfidentialClient(t, st, "Web Client", "web-secret", []string{"orders:read"})
	_, err = svc.Tokens.Issue(ctx, user.ID, webClient.ID, "", []string{"orders:read"}, time.Hour)
	require.NoError(t, err)

	_, err = svc.Create(ctx, other.ID, "bob's token", []string{"orders:read"})
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Oldest first, with client data attached.
	require.Equal(t, first.Token.ID, list[0].Token.ID)
	require.Equal(t, second.Token.ID, list[1].Token.ID)
	require.True(t, list[0].Client.PersonalAccess)
}

func TestPersonalTokenRevoke(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newTestPersonalService(t, st)
	user := seedUser(t, st, "alice@example.com", "hunter2hunter2")
	other := seedUser(t, st, "bob@example.com", "hunter2hunter2")

	issued, err := svc.Create(ctx, user.ID, "to revoke", []string{"orders:read"})
	require.NoError(t, err)

	t.Run("owner revokes, row survives", func(t *testing.T) {
		require.NoError(t, svc.Revoke(ctx, user.ID, issued.Token.ID))

		row, err := st.Tokens().GetTokenByID(ctx, issued.Token.ID)
		require.NoError(t, err)
		require.True(t, row.Revoked)
	})

	t.Run("revoking again is fine", func(t *testing.T) {
		require.NoError(t, svc.Revoke(ctx, user.ID, issued.Token.ID))
	})

	t.Run("someone else's token looks like it does not exist", func(t *testing.T) {
		require.ErrorIs(t, svc.Revoke(ctx, other.ID, issued.Token.ID), ErrTokenNotFound)
	})

	t.Run("unknown id not found", func(t *testing.T) {
		require.ErrorIs(t, svc.Revoke(ctx, user.ID, "01ARZ3NDEKTSV4RRFFQ69G5FAV"), ErrTokenNotFound)
	})
}
