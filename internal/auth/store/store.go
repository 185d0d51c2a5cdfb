package store

import (
	"context"
	"errors"

	"github.com/veldtlabs/passgate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a transaction escape hatch for multi-step writes.
type Store interface {
	Users() Users
	Clients() Clients
	Tokens() Tokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the default lookup during the password grant.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Clients interface {
	// GetClientByID fetches a client for grant handling and guard lookups.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// GetClientByName fetches a client by its unique name (bootstrap seeding).
	GetClientByName(ctx context.Context, name string) (domain.Client, error)

	// ListClients returns all clients ordered by creation date (newest first).
	ListClients(ctx context.Context) ([]domain.Client, error)

	// CreateClient inserts a new client (secret_hash may be empty for public clients).
	CreateClient(ctx context.Context, c domain.Client) error

	// RevokeClient flips revoked=1 and bumps updated_at. Idempotent.
	RevokeClient(ctx context.Context, clientID string) error

	// IsEmpty returns true if there are no clients.
	IsEmpty(ctx context.Context) (bool, error)
}

type Tokens interface {
	// CreateToken stores a new access token record.
	CreateToken(ctx context.Context, t domain.Token) error

	// GetTokenByID fetches a token by id (the jti claim of its JWT).
	GetTokenByID(ctx context.Context, id string) (domain.Token, error)

	// GetUserToken fetches a token only if it is owned by the given user.
	GetUserToken(ctx context.Context, userID, tokenID string) (domain.Token, error)

	// ListUserTokens returns all tokens owned by a user, oldest first, each
	// with its client record attached.
	ListUserTokens(ctx context.Context, userID string) ([]domain.TokenWithClient, error)

	// RevokeToken flips revoked=1 and bumps updated_at. Idempotent; the row
	// is never deleted by revocation.
	RevokeToken(ctx context.Context, tokenID string) error

	// RevokeUserClientTokens bulk-revokes all tokens for a user+client pair.
	RevokeUserClientTokens(ctx context.Context, userID, clientID string) error

	// DeleteExpiredTokens is housekeeping: it removes rows that are past
	// expiry and already revoked, or expired for longer than the retention
	// window. Live tokens are never touched.
	DeleteExpiredTokens(ctx context.Context) error
}
