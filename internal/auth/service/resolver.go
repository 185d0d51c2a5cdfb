package service

import (
	"context"
	"errors"

	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/store"
	"github.com/veldtlabs/passgate/pkg/cryptox"
	"github.com/veldtlabs/passgate/pkg/slogx"
)

// ErrNoUserSource reports that the password grant ran without a user source
// wired in. This is a deployment misconfiguration, not a bad request, and it
// maps to a server error rather than invalid_grant.
var ErrNoUserSource = errors.New("service: no user source configured for password grant")

// UserSource is where the credential resolver looks up accounts. The store
// implements it directly; deployments can substitute an external directory.
type UserSource interface {
	// FindByEmail returns the user registered under the given address, or
	// store.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// GrantUserFinder is an optional capability of a UserSource: full control
// over how a grant login maps to a user (e.g. lookup by username or phone
// instead of email). When implemented it replaces FindByEmail entirely.
type GrantUserFinder interface {
	FindForGrant(ctx context.Context, login string) (domain.User, error)
}

// GrantPasswordValidator is an optional capability of a UserSource: it
// replaces the default argon2 hash check. When implemented its verdict is
// authoritative and the stored hash is never consulted.
type GrantPasswordValidator interface {
	ValidateGrantPassword(ctx context.Context, u domain.User, password string) (bool, error)
}

// CredentialResolver turns a login/password pair into a UserIdentity for the
// password grant. Lookup and verification strategies come from the Source;
// the resolver only sequences them and normalises failures.
type CredentialResolver struct {
	Source UserSource
}

// Resolve validates the credentials and returns the matching identity.
// A wrong login and a wrong password both collapse into
// ErrInvalidCredentials so callers cannot probe which half failed.
func (r *CredentialResolver) Resolve(ctx context.Context, login, password string) (domain.UserIdentity, error) {
	if r.Source == nil {
		return domain.UserIdentity{}, ErrNoUserSource
	}

	log := slogx.FromContext(ctx)

	var (
		user domain.User
		err  error
	)
	if finder, ok := r.Source.(GrantUserFinder); ok {
		user, err = finder.FindForGrant(ctx, login)
	} else {
		user, err = r.Source.FindByEmail(ctx, login)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserIdentity{}, ErrInvalidCredentials
		}
		return domain.UserIdentity{}, err
	}

	if validator, ok := r.Source.(GrantPasswordValidator); ok {
		valid, err := validator.ValidateGrantPassword(ctx, user, password)
		if err != nil {
			return domain.UserIdentity{}, err
		}
		if !valid {
			log.Info("password grant rejected by source validator", "user_id", user.ID)
			return domain.UserIdentity{}, ErrInvalidCredentials
		}
		return domain.NewUserIdentity(user.ID), nil
	}

	if user.PasswordHash == "" || cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		log.Info("password grant hash verification failed", "user_id", user.ID)
		return domain.UserIdentity{}, ErrInvalidCredentials
	}

	return domain.NewUserIdentity(user.ID), nil
}

// storeUserSource adapts the store's user repository to the UserSource
// boundary.
type storeUserSource struct {
	st store.Store
}

// NewStoreUserSource returns the default UserSource backed by the service's
// own user table.
func NewStoreUserSource(st store.Store) UserSource {
	return &storeUserSource{st: st}
}

func (s *storeUserSource) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.st.Users().GetUserByEmail(ctx, email)
}
