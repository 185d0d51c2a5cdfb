package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/store"
)

func TestCredentialResolver_StoreSource(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "alice@example.com", "correct horse battery staple")

	resolver := &CredentialResolver{Source: NewStoreUserSource(st)}

	t.Run("valid credentials resolve to the user's identity", func(t *testing.T) {
		identity, err := resolver.Resolve(ctx, "alice@example.com", "correct horse battery staple")
		require.NoError(t, err)
		require.Equal(t, user.ID, identity.ID())
		require.False(t, identity.IsZero())
	})

	t.Run("wrong password fails", func(t *testing.T) {
		identity, err := resolver.Resolve(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.True(t, identity.IsZero())
	})

	t.Run("unknown login fails like a wrong password", func(t *testing.T) {
		_, errUnknown := resolver.Resolve(ctx, "nobody@example.com", "whatever")
		_, errWrong := resolver.Resolve(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		require.Equal(t, errWrong, errUnknown)
	})
}

func TestCredentialResolver_NoSource(t *testing.T) {
	resolver := &CredentialResolver{}

	_, err := resolver.Resolve(context.Background(), "alice@example.com", "pw")
	require.ErrorIs(t, err, ErrNoUserSource)
}

// customSource exercises both optional capabilities: lookup by a name field
// instead of email, and an external password verdict.
type customSource struct {
	users map[string]domain.User // keyed by name
	valid bool
	err   error
}

func (s *customSource) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return domain.User{}, errors.New("FindByEmail must not be called when FindForGrant exists")
}

func (s *customSource) FindForGrant(ctx context.Context, login string) (domain.User, error) {
	u, ok := s.users[login]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *customSource) ValidateGrantPassword(ctx context.Context, u domain.User, password string) (bool, error) {
	return s.valid, s.err
}

func TestCredentialResolver_SourceCapabilities(t *testing.T) {
	ctx := context.Background()
	users := map[string]domain.User{
		"alice": {ID: "user-1", Name: "alice"},
	}

	t.Run("custom finder replaces email lookup", func(t *testing.T) {
		resolver := &CredentialResolver{Source: &customSource{users: users, valid: true}}

		identity, err := resolver.Resolve(ctx, "alice", "anything")
		require.NoError(t, err)
		require.Equal(t, "user-1", identity.ID())
	})

	t.Run("custom validator verdict is authoritative", func(t *testing.T) {
		// The stored hash is empty, which the default check would reject.
		resolver := &CredentialResolver{Source: &customSource{users: users, valid: true}}
		_, err := resolver.Resolve(ctx, "alice", "anything")
		require.NoError(t, err)

		resolver = &CredentialResolver{Source: &customSource{users: users, valid: false}}
		_, err = resolver.Resolve(ctx, "alice", "anything")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("validator errors propagate unchanged", func(t *testing.T) {
		boom := errors.New("directory unreachable")
		resolver := &CredentialResolver{Source: &customSource{users: users, err: boom}}

		_, err := resolver.Resolve(ctx, "alice", "anything")
		require.ErrorIs(t, err, boom)
	})

	t.Run("finder miss is invalid credentials", func(t *testing.T) {
		resolver := &CredentialResolver{Source: &customSource{users: users, valid: true}}

		_, err := resolver.Resolve(ctx, "bob", "anything")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
