package sqlite

import (
	"context"
	"database/sql"

	"github.com/veldtlabs/passgate/internal/auth/domain"
)

type tokensRepo struct {
	q querier
}

const tokenColumns = `id, user_id, client_id, name, scopes, revoked, expires_at, created_at, updated_at`

func scanToken(row rowScanner) (domain.Token, error) {
	var t domain.Token
	var userID sql.NullString
	var scopes string
	err := row.Scan(&t.ID, &userID, &t.ClientID, &t.Name, &scopes,
		&t.Revoked, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	t.UserID = mapNullString(userID)
	t.Scopes = splitScopes(scopes)
	return t, nil
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO tokens (id, user_id, client_id, name, scopes, revoked, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, mapStringNull(t.UserID), t.ClientID, t.Name, joinScopes(t.Scopes),
		t.Revoked, t.ExpiresAt)
	return err
}

func (r *tokensRepo) GetTokenByID(ctx context.Context, id string) (domain.Token, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE id = ?`, id)
	return scanToken(row)
}

func (r *tokensRepo) GetUserToken(ctx context.Context, userID, tokenID string) (domain.Token, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE id = ? AND user_id = ?`, tokenID, userID)
	return scanToken(row)
}

// ListUserTokens returns the user's tokens oldest first with the owning
// client row joined in, so callers can filter on client flags without a
// second round trip.
func (r *tokensRepo) ListUserTokens(ctx context.Context, userID string) ([]domain.TokenWithClient, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.client_id, t.name, t.scopes, t.revoked, t.expires_at, t.created_at, t.updated_at,
		        c.id, c.name, c.secret_hash, c.scopes, c.first_party, c.personal_access, c.revoked, c.created_at, c.updated_at
		 FROM tokens t
		 JOIN clients c ON c.id = t.client_id
		 WHERE t.user_id = ?
		 ORDER BY t.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TokenWithClient
	for rows.Next() {
		var t domain.Token
		var c domain.Client
		var tokenUserID, clientSecretHash sql.NullString
		var tokenScopes, clientScopes string

		err := rows.Scan(
			&t.ID, &tokenUserID, &t.ClientID, &t.Name, &tokenScopes,
			&t.Revoked, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt,
			&c.ID, &c.Name, &clientSecretHash, &clientScopes,
			&c.FirstParty, &c.PersonalAccess, &c.Revoked, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		t.UserID = mapNullString(tokenUserID)
		t.Scopes = splitScopes(tokenScopes)
		c.SecretHash = mapNullString(clientSecretHash)
		c.Scopes = splitScopes(clientScopes)

		out = append(out, domain.TokenWithClient{Token: t, Client: c})
	}
	return out, rows.Err()
}

func (r *tokensRepo) RevokeToken(ctx context.Context, tokenID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE tokens SET revoked = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		tokenID)
	return err
}

func (r *tokensRepo) RevokeUserClientTokens(ctx context.Context, userID, clientID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE tokens SET revoked = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND client_id = ? AND revoked = 0`,
		userID, clientID)
	return err
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context) error {
	// Only rows that are both revoked and expired are ever deleted. Unrevoked
	// tokens stay visible in listings after expiry; revocation is the sole
	// path out of the table.
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM tokens WHERE revoked = 1 AND expires_at < CURRENT_TIMESTAMP`)
	return err
}
