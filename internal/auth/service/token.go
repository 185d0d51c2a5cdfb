package service

import (
	"context"
	"errors"
	"time"

	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/store"
	"github.com/veldtlabs/passgate/pkg/cryptox"
	"github.com/veldtlabs/passgate/pkg/idx"
	"github.com/veldtlabs/passgate/pkg/jwtx"
	"github.com/veldtlabs/passgate/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrUnauthorizedClient = errors.New("unauthorized_client")
	ErrInvalidScope       = errors.New("invalid_scope")
	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrInvalidToken       = errors.New("invalid_token")
)

// TokenService issues, validates and revokes access tokens. Every issued
// token has a database row whose id doubles as the JWT's jti claim, so
// validation always consults both the signature and the row.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Store    store.Store
	Resolver *CredentialResolver
	Scopes   *ScopeCatalog

	Issuer    string
	AccessTTL time.Duration
}

// IssuePasswordGrant implements the OAuth2 password grant: it authenticates
// the client, resolves the resource owner's credentials, computes effective
// scopes and issues a token bound to both.
func (s *TokenService) IssuePasswordGrant(
	ctx context.Context,
	clientID, clientSecret string,
	login, password string,
	requestedScopes []string,
) (*domain.IssuedToken, error) {
	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	// Personal access clients only mint tokens through the token store,
	// never through grant flows.
	if client.PersonalAccess {
		return nil, ErrUnauthorizedClient
	}

	identity, err := s.Resolver.Resolve(ctx, login, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	effective, err := s.effectiveScopes(requestedScopes, client)
	if err != nil {
		return nil, err
	}

	return s.Issue(ctx, identity.ID(), client.ID, "", effective, s.AccessTTL)
}

// IssueClientCredentials implements the OAuth2 client_credentials grant.
// Only confidential clients qualify and the resulting token has no user.
func (s *TokenService) IssueClientCredentials(
	ctx context.Context,
	clientID, clientSecret string,
	requestedScopes []string,
) (*domain.IssuedToken, error) {
	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	if !client.Confidential() {
		slogx.FromContext(ctx).Warn("client_credentials grant attempted with public client", "client_id", clientID)
		return nil, ErrInvalidClient
	}
	if client.PersonalAccess {
		return nil, ErrUnauthorizedClient
	}

	effective, err := s.effectiveScopes(requestedScopes, client)
	if err != nil {
		return nil, err
	}

	return s.Issue(ctx, "", client.ID, "", effective, s.AccessTTL)
}

// Issue persists a token row and signs the matching JWT. userID may be empty
// for machine tokens and name is only set for personal access tokens. The
// row is written first so a signed token never exists without its record.
func (s *TokenService) Issue(
	ctx context.Context,
	userID, clientID, name string,
	scopes []string,
	ttl time.Duration,
) (*domain.IssuedToken, error) {
	now := time.Now().UTC()

	row := domain.Token{
		ID:        idx.New().String(),
		UserID:    userID,
		ClientID:  clientID,
		Name:      name,
		Scopes:    scopes,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.Tokens().CreateToken(ctx, row); err != nil {
		return nil, err
	}

	subject := userID
	if subject == "" {
		subject = clientID
	}

	claims := jwtx.NewAccessClaims(subject, clientID, row.ID, scopes, ttl, s.Issuer, now)

	signed, err := s.Signer.Sign(claims)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to sign access token", "err", err)
		// The unsigned row is unusable; revoke it rather than leave a live record.
		_ = s.Store.Tokens().RevokeToken(ctx, row.ID)
		return nil, err
	}

	return &domain.IssuedToken{Token: row, AccessToken: signed}, nil
}

// ValidateAccess is the token validation boundary. It verifies the JWT's
// signature and claims, then checks the backing row for revocation and
// expiry. Anything short of a live token returns ErrInvalidToken.
func (s *TokenService) ValidateAccess(ctx context.Context, raw string) (domain.AccessContext, error) {
	claims, err := s.Verifier.Verify(raw)
	if err != nil {
		return domain.AccessContext{}, ErrInvalidToken
	}

	row, err := s.Store.Tokens().GetTokenByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccessContext{}, ErrInvalidToken
		}
		return domain.AccessContext{}, err
	}

	if row.Revoked || time.Now().After(row.ExpiresAt) {
		return domain.AccessContext{}, ErrInvalidToken
	}

	return domain.AccessContext{
		TokenID:  row.ID,
		UserID:   row.UserID,
		ClientID: row.ClientID,
		Scopes:   row.Scopes,
	}, nil
}

// Introspect returns the live token row for a raw credential, or
// ErrInvalidToken for anything that should introspect as inactive.
func (s *TokenService) Introspect(ctx context.Context, raw string) (domain.Token, error) {
	access, err := s.ValidateAccess(ctx, raw)
	if err != nil {
		return domain.Token{}, err
	}
	return s.Store.Tokens().GetTokenByID(ctx, access.TokenID)
}

// Revoke marks the token behind the raw credential as revoked. Per RFC 7009
// an invalid or already-revoked token is not an error; the row itself is
// kept so the revocation stays observable.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	claims, err := s.Verifier.Verify(raw)
	if err != nil {
		return nil
	}

	err = s.Store.Tokens().RevokeToken(ctx, claims.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// authenticateClient loads the client and, for confidential clients,
// verifies the presented secret. Revoked and unknown clients are
// indistinguishable from a bad secret.
func (s *TokenService) authenticateClient(ctx context.Context, clientID, clientSecret string) (domain.Client, error) {
	log := slogx.FromContext(ctx)

	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrInvalidClient
		}
		return domain.Client{}, err
	}

	if client.Revoked {
		log.Info("grant attempted with revoked client", "client_id", clientID)
		return domain.Client{}, ErrInvalidClient
	}

	if client.Confidential() {
		if clientSecret == "" || cryptox.VerifyPassword(clientSecret, client.SecretHash) != nil {
			log.Info("client secret verification failed", "client_id", clientID)
			return domain.Client{}, ErrInvalidClient
		}
	}

	return client, nil
}

// effectiveScopes computes the scopes a grant actually receives: unknown
// scopes are rejected, an empty request defaults to everything the client
// may grant, otherwise the request is intersected with the client's scopes.
func (s *TokenService) effectiveScopes(requested []string, client domain.Client) ([]string, error) {
	if unknown := s.Scopes.Unknown(requested); len(unknown) > 0 {
		return nil, ErrInvalidScope
	}

	if len(requested) == 0 {
		if len(client.Scopes) == 0 {
			return nil, ErrInvalidScope
		}
		return dedupe(client.Scopes), nil
	}

	effective := intersectScopes(requested, client.Scopes)
	if len(effective) == 0 {
		return nil, ErrInvalidScope
	}
	return effective, nil
}

// intersectScopes keeps the elements of a that also appear in b. A wildcard
// in b lets everything in a through.
func intersectScopes(a, b []string) []string {
	set := map[string]struct{}{}
	wildcard := false
	for _, s := range b {
		if s == ScopeWildcard {
			wildcard = true
		}
		set[s] = struct{}{}
	}

	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok || wildcard {
			out = append(out, s)
		}
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
