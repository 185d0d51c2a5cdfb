package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/store"
	"github.com/veldtlabs/passgate/pkg/cryptox"
	"github.com/veldtlabs/passgate/pkg/idx"
)

// Default names for the seeded clients. Lookups key on the name, so changing
// these on an existing database creates new clients instead of reusing them.
const (
	DefaultPersonalClientName = "Personal Access Client"
	DefaultWebClientName      = "Web Client"
)

// BootstrapOptions configures startup seeding.
type BootstrapOptions struct {
	PersonalClientName string
	WebClientName      string

	// ClientScopes is what the seeded web client may grant, typically the
	// whole scope catalog.
	ClientScopes []string

	// AdminEmail/AdminName/AdminPassword optionally seed or update an admin
	// user. All empty means no user seeding.
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

// BootstrapResult reports what seeding produced. WebClientSecret is set only
// when the web client was created in this run; it is never recoverable later.
type BootstrapResult struct {
	PersonalClientID string
	WebClientID      string
	WebClientSecret  string
	AdminUserID      string
}

// EnsureDefaults makes a fresh database usable: it seeds the personal access
// client every personal token is bound to, a confidential first-party web
// client for the password grant, and optionally an admin user. It is
// idempotent and safe to run on every startup.
func EnsureDefaults(ctx context.Context, st store.Store, log *slog.Logger, opts BootstrapOptions) (BootstrapResult, error) {
	if opts.PersonalClientName == "" {
		opts.PersonalClientName = DefaultPersonalClientName
	}
	if opts.WebClientName == "" {
		opts.WebClientName = DefaultWebClientName
	}

	var result BootstrapResult

	err := st.WithTx(ctx, func(tx store.Tx) error {
		personal, err := ensureClient(ctx, tx, domain.Client{
			Name:           opts.PersonalClientName,
			Scopes:         []string{ScopeWildcard},
			FirstParty:     true,
			PersonalAccess: true,
		})
		if err != nil {
			return err
		}
		result.PersonalClientID = personal.ID

		web, err := tx.Clients().GetClientByName(ctx, opts.WebClientName)
		if errors.Is(err, store.ErrNotFound) {
			secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
			if err != nil {
				return err
			}
			secretHash, err := cryptox.HashPassword(secret)
			if err != nil {
				return err
			}

			web = newClient(domain.Client{
				Name:       opts.WebClientName,
				SecretHash: secretHash,
				Scopes:     dedupe(opts.ClientScopes),
				FirstParty: true,
			})
			if err := tx.Clients().CreateClient(ctx, web); err != nil {
				return err
			}
			result.WebClientSecret = secret
		} else if err != nil {
			return err
		}
		result.WebClientID = web.ID

		adminID, err := ensureAdmin(ctx, tx, opts)
		if err != nil {
			return err
		}
		result.AdminUserID = adminID

		return nil
	})
	if err != nil {
		return BootstrapResult{}, err
	}

	if result.WebClientSecret != "" {
		// Shown once. There is no recovery path for this secret.
		log.Info("seeded web client",
			"client_id", result.WebClientID,
			"client_secret", result.WebClientSecret,
		)
	}

	return result, nil
}

func ensureClient(ctx context.Context, tx store.Tx, c domain.Client) (domain.Client, error) {
	existing, err := tx.Clients().GetClientByName(ctx, c.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, err
	}

	c = newClient(c)
	if err := tx.Clients().CreateClient(ctx, c); err != nil {
		return domain.Client{}, err
	}
	return c, nil
}

func newClient(c domain.Client) domain.Client {
	now := time.Now().UTC()
	c.ID = idx.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now
	return c
}

// ensureAdmin creates the admin user when configured, or rotates its
// password hash if the user already exists.
func ensureAdmin(ctx context.Context, tx store.Tx, opts BootstrapOptions) (string, error) {
	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		return "", nil
	}

	hash, err := cryptox.HashPassword(opts.AdminPassword)
	if err != nil {
		return "", err
	}

	existing, err := tx.Users().GetUserByEmail(ctx, opts.AdminEmail)
	if err == nil {
		if verr := cryptox.VerifyPassword(opts.AdminPassword, existing.PasswordHash); verr != nil {
			if err := tx.Users().UpdatePasswordHash(ctx, existing.ID, hash); err != nil {
				return "", err
			}
		}
		return existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        opts.AdminEmail,
		Name:         opts.AdminName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.Users().CreateUser(ctx, user); err != nil {
		return "", err
	}
	return user.ID, nil
}
