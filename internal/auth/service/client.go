package service

import (
	"context"
	"errors"

	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/store"
)

// ClientService exposes client lookups and lifecycle operations.
type ClientService struct {
	Store store.Store
}

// FindByID returns the client and whether it exists. Only unexpected store
// failures surface as errors; an unknown id is (zero, false, nil).
func (s *ClientService) FindByID(ctx context.Context, id string) (domain.Client, bool, error) {
	client, err := s.Store.Clients().GetClientByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, false, nil
		}
		return domain.Client{}, false, err
	}
	return client, true, nil
}

// List returns every registered client, newest first.
func (s *ClientService) List(ctx context.Context) ([]domain.Client, error) {
	return s.Store.Clients().ListClients(ctx)
}

// Revoke disables a client and, transactionally, revokes the user's
// outstanding tokens issued through it. Pass an empty userID to revoke the
// client record alone.
func (s *ClientService) Revoke(ctx context.Context, clientID, userID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Clients().RevokeClient(ctx, clientID); err != nil {
			return err
		}
		if userID == "" {
			return nil
		}
		return tx.Tokens().RevokeUserClientTokens(ctx, userID, clientID)
	})
}
