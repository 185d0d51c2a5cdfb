package sqlite

import (
	"context"
	"database/sql"

	"github.com/veldtlabs/passgate/internal/auth/domain"
)

type clientsRepo struct {
	q querier
}

const clientColumns = `id, name, secret_hash, scopes, first_party, personal_access, revoked, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var c domain.Client
	var secretHash sql.NullString
	var scopes string
	err := row.Scan(&c.ID, &c.Name, &secretHash, &scopes,
		&c.FirstParty, &c.PersonalAccess, &c.Revoked, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	c.SecretHash = mapNullString(secretHash)
	c.Scopes = splitScopes(scopes)
	return c, nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	return scanClient(row)
}

func (r *clientsRepo) GetClientByName(ctx context.Context, name string) (domain.Client, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE name = ?`, name)
	return scanClient(row)
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO clients (id, name, secret_hash, scopes, first_party, personal_access, revoked)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, mapStringNull(c.SecretHash), joinScopes(c.Scopes),
		c.FirstParty, c.PersonalAccess, c.Revoked)
	return err
}

func (r *clientsRepo) RevokeClient(ctx context.Context, clientID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE clients SET revoked = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		clientID)
	return err
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
