// Package jwtx is the token codec: it signs and verifies the EdDSA JWTs that
// carry a token record's identity (jti), owner, client and scopes. Everything
// else about a token (revocation, listing, naming) lives in the store.
package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the default lifetime for grant-issued access
// tokens. Personal access tokens use a much longer, configured TTL.
const DefaultAccessTokenTTL = 15 * time.Minute

// Claims are the access-token claims used across the service. Changes should
// stay additive to preserve compatibility with already-issued tokens.
type Claims struct {
	jwt.RegisteredClaims

	// ClientID is the OAuth2 client the token was issued to.
	ClientID string `json:"client_id,omitempty"`

	// Scopes granted to this token, e.g. ["orders:read", "orders:write"].
	// The wildcard "*" means every scope.
	Scopes []string `json:"scopes,omitempty"`
}

// NewAccessClaims builds minimally-correct claims. The jti is the persisted
// token row's ID so verifiers can check revocation state.
func NewAccessClaims(
	subject, clientID, jti string,
	scopes []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		ClientID: clientID,
		Scopes:   scopes,
	}
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
