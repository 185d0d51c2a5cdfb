package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDefaults(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	log := slog.New(slog.DiscardHandler)

	opts := BootstrapOptions{
		ClientScopes:  []string{"orders:read", "orders:write"},
		AdminEmail:    "admin@example.com",
		AdminName:     "Admin",
		AdminPassword: "bootstrap-password",
	}

	first, err := EnsureDefaults(ctx, st, log, opts)
	require.NoError(t, err)
	require.NotEmpty(t, first.PersonalClientID)
	require.NotEmpty(t, first.WebClientID)
	require.NotEmpty(t, first.WebClientSecret)
	require.NotEmpty(t, first.AdminUserID)

	t.Run("personal access client is first-party and secretless", func(t *testing.T) {
		c, err := st.Clients().GetClientByID(ctx, first.PersonalClientID)
		require.NoError(t, err)
		require.True(t, c.PersonalAccess)
		require.True(t, c.FirstParty)
		require.False(t, c.Confidential())
	})

	t.Run("web client is confidential with the configured scopes", func(t *testing.T) {
		c, err := st.Clients().GetClientByID(ctx, first.WebClientID)
		require.NoError(t, err)
		require.True(t, c.Confidential())
		require.True(t, c.FirstParty)
		require.False(t, c.PersonalAccess)
		require.Equal(t, []string{"orders:read", "orders:write"}, c.Scopes)
	})

	t.Run("seeded admin can pass the password grant", func(t *testing.T) {
		resolver := &CredentialResolver{Source: NewStoreUserSource(st)}
		identity, err := resolver.Resolve(ctx, "admin@example.com", "bootstrap-password")
		require.NoError(t, err)
		require.Equal(t, first.AdminUserID, identity.ID())
	})

	t.Run("second run reuses everything and leaks no secret", func(t *testing.T) {
		second, err := EnsureDefaults(ctx, st, log, opts)
		require.NoError(t, err)
		require.Equal(t, first.PersonalClientID, second.PersonalClientID)
		require.Equal(t, first.WebClientID, second.WebClientID)
		require.Equal(t, first.AdminUserID, second.AdminUserID)
		require.Empty(t, second.WebClientSecret)
	})

	t.Run("changed admin password rotates the hash", func(t *testing.T) {
		rotated := opts
		rotated.AdminPassword = "rotated-password"

		_, err := EnsureDefaults(ctx, st, log, rotated)
		require.NoError(t, err)

		resolver := &CredentialResolver{Source: NewStoreUserSource(st)}
		_, err = resolver.Resolve(ctx, "admin@example.com", "rotated-password")
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, "admin@example.com", "bootstrap-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
