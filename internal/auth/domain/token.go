package domain

import "time"

// Token models a stored access token record. The row is the source of truth
// for revocation; the signed JWT carries the row ID as its jti claim.
type Token struct {
	ID        string
	UserID    string // empty for client_credentials tokens
	ClientID  string
	Name      string // user-supplied label, personal access tokens only
	Scopes    []string
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenWithClient pairs a token with its owning client record, used when
// listing tokens with client data attached.
type TokenWithClient struct {
	Token  Token
	Client Client
}

// IssuedToken pairs a freshly persisted token record with its signed bearer
// credential. The AccessToken string is shown exactly once; only the record
// survives.
type IssuedToken struct {
	Token       Token  `json:"token"`
	AccessToken string `json:"access_token"`
}

// AccessContext is what the token-validation boundary attaches to an
// authenticated request: the identifiers and scopes extracted from a
// verified, unrevoked bearer token.
type AccessContext struct {
	TokenID  string
	UserID   string
	ClientID string
	Scopes   []string
}
