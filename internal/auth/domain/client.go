package domain

import "time"

type Client struct {
	ID             string
	Name           string
	SecretHash     string
	Scopes         []string
	FirstParty     bool // Client belongs to the same organisation as the server
	PersonalAccess bool // Client mints personal access tokens rather than grant flows
	Revoked        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Confidential reports whether the client authenticates with a secret.
func (c Client) Confidential() bool { return c.SecretHash != "" }
