package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/store"
	"github.com/veldtlabs/passgate/pkg/slogx"
)

// MaxPersonalTokenNameLength bounds the user-supplied token label.
const MaxPersonalTokenNameLength = 255

// DefaultPersonalTokenTTL is the lifetime of personal access tokens unless
// configured otherwise. They are long-lived by design; users revoke them
// from the token list instead of waiting them out.
const DefaultPersonalTokenTTL = 365 * 24 * time.Hour

// ErrTokenNotFound reports that a token id does not exist or is not owned by
// the requesting user. The two cases are deliberately indistinguishable.
var ErrTokenNotFound = errors.New("service: token not found")

// ValidationError carries per-field messages for a rejected create request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PersonalTokenService is the user-facing token store: list, create and
// revoke personal access tokens. All operations are scoped to the owning
// user; a token belonging to someone else behaves as if it did not exist.
type PersonalTokenService struct {
	Store  store.Store
	Tokens *TokenService
	Scopes *ScopeCatalog

	// ClientID is the personal access client every created token is bound
	// to, seeded at bootstrap.
	ClientID string
	TTL      time.Duration
}

// ListForUser returns the user's personal access tokens, oldest first. Only
// tokens minted through a personal access client are included; grant-issued
// session tokens never show up here.
func (s *PersonalTokenService) ListForUser(ctx context.Context, userID string) ([]domain.TokenWithClient, error) {
	all, err := s.Store.Tokens().ListUserTokens(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.TokenWithClient, 0, len(all))
	for _, t := range all {
		if t.Client.PersonalAccess {
			out = append(out, t)
		}
	}
	return out, nil
}

// Create validates the request and mints a new personal access token for the
// user. Validation failures return a *ValidationError with per-field
// messages; the endpoint renders them as an errors map.
func (s *PersonalTokenService) Create(ctx context.Context, userID, name string, scopes []string) (*domain.IssuedToken, error) {
	if verr := s.validate(name, scopes); verr != nil {
		return nil, verr
	}

	client, err := s.Store.Clients().GetClientByID(ctx, s.ClientID)
	if err != nil {
		return nil, fmt.Errorf("personal access client %q: %w", s.ClientID, err)
	}
	if !client.PersonalAccess || client.Revoked {
		return nil, fmt.Errorf("client %q cannot mint personal access tokens", s.ClientID)
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultPersonalTokenTTL
	}

	issued, err := s.Tokens.Issue(ctx, userID, client.ID, strings.TrimSpace(name), dedupe(scopes), ttl)
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("personal access token created",
		"user_id", userID,
		"token_id", issued.Token.ID,
		"scopes", issued.Token.Scopes,
	)
	return issued, nil
}

// Revoke marks the user's token as revoked. Revocation is a state
// transition: the row survives and revoking twice is fine. A token the user
// does not own returns ErrTokenNotFound.
func (s *PersonalTokenService) Revoke(ctx context.Context, userID, tokenID string) error {
	if _, err := s.Store.Tokens().GetUserToken(ctx, userID, tokenID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}

	return s.Store.Tokens().RevokeToken(ctx, tokenID)
}

func (s *PersonalTokenService) validate(name string, scopes []string) *ValidationError {
	fields := map[string]string{}

	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		fields["name"] = "name is required"
	case utf8.RuneCountInString(trimmed) > MaxPersonalTokenNameLength:
		fields["name"] = fmt.Sprintf("name must be at most %d characters", MaxPersonalTokenNameLength)
	}

	if len(scopes) == 0 {
		fields["scopes"] = "at least one scope is required"
	} else if unknown := s.Scopes.Unknown(scopes); len(unknown) > 0 {
		fields["scopes"] = "unknown scopes: " + strings.Join(unknown, ", ")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
