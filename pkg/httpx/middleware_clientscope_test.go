package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	token AccessToken
	err   error
}

func (s stubValidator) ValidateBearer(ctx context.Context, raw string) (AccessToken, error) {
	return s.token, s.err
}

type stubDirectory struct {
	client ClientInfo
	found  bool
	err    error
}

func (s stubDirectory) FindClientByID(ctx context.Context, id string) (ClientInfo, bool, error) {
	return s.client, s.found, s.err
}

func newGuardRequest(t *testing.T) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/oauth2/introspect", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func TestClientScopeGuard_Check(t *testing.T) {
	thirdParty := stubDirectory{
		client: ClientInfo{ID: "client-1", FirstParty: false, Revoked: false},
		found:  true,
	}

	t.Run("matching scope passes", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"read"}}},
			Clients:   thirdParty,
		}

		require.NoError(t, guard.Check(newGuardRequest(t), "read"))
	})

	t.Run("any one of the required scopes suffices", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"write"}}},
			Clients:   thirdParty,
		}

		require.NoError(t, guard.Check(newGuardRequest(t), "read", "write"))
	})

	t.Run("wildcard grants everything", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{ScopeWildcard}}},
			Clients:   thirdParty,
		}

		require.NoError(t, guard.Check(newGuardRequest(t), "read", "admin"))
	})

	t.Run("no overlapping scope reports the full required list", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"other"}}},
			Clients:   thirdParty,
		}

		err := guard.Check(newGuardRequest(t), "read", "write")
		var missing *MissingScopeError
		require.ErrorAs(t, err, &missing)
		require.Equal(t, []string{"read", "write"}, missing.Required)
	})

	t.Run("first-party client rejected regardless of scopes", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{ScopeWildcard}}},
			Clients: stubDirectory{
				client: ClientInfo{ID: "client-1", FirstParty: true},
				found:  true,
			},
		}

		require.ErrorIs(t, guard.Check(newGuardRequest(t), "read"), ErrAuthentication)
	})

	t.Run("revoked client rejected", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"read"}}},
			Clients: stubDirectory{
				client: ClientInfo{ID: "client-1", Revoked: true},
				found:  true,
			},
		}

		require.ErrorIs(t, guard.Check(newGuardRequest(t), "read"), ErrAuthentication)
	})

	t.Run("unknown client rejected", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"read"}}},
			Clients:   stubDirectory{found: false},
		}

		require.ErrorIs(t, guard.Check(newGuardRequest(t), "read"), ErrAuthentication)
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{err: errors.New("bad signature")},
			Clients:   thirdParty,
		}

		require.ErrorIs(t, guard.Check(newGuardRequest(t), "read"), ErrAuthentication)
	})

	t.Run("missing bearer rejected", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"read"}}},
			Clients:   thirdParty,
		}

		req := httptest.NewRequest(http.MethodPost, "/v1/oauth2/introspect", nil)
		require.ErrorIs(t, guard.Check(req, "read"), ErrAuthentication)
	})

	t.Run("directory error propagates", func(t *testing.T) {
		lookupErr := errors.New("db down")
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"read"}}},
			Clients:   stubDirectory{err: lookupErr},
		}

		require.ErrorIs(t, guard.Check(newGuardRequest(t), "read"), lookupErr)
	})
}

func TestClientScopeGuard_RequireAnyScope(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The guard must not rewrite the request on the way through.
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("pass", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"read"}}},
			Clients: stubDirectory{
				client: ClientInfo{ID: "client-1"},
				found:  true,
			},
		}

		rec := httptest.NewRecorder()
		guard.RequireAnyScope("read")(next).ServeHTTP(rec, newGuardRequest(t))
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("insufficient scope is 403 with scope challenge", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"other"}}},
			Clients: stubDirectory{
				client: ClientInfo{ID: "client-1"},
				found:  true,
			},
		}

		rec := httptest.NewRecorder()
		guard.RequireAnyScope("read", "write")(next).ServeHTTP(rec, newGuardRequest(t))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `scope="read write"`)
	})

	t.Run("authentication failure is 401", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{err: errors.New("expired")},
			Clients:   stubDirectory{},
		}

		rec := httptest.NewRecorder()
		guard.RequireAnyScope("read")(next).ServeHTTP(rec, newGuardRequest(t))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("lookup failure is 500", func(t *testing.T) {
		guard := &ClientScopeGuard{
			Validator: stubValidator{token: AccessToken{ClientID: "client-1", Scopes: []string{"read"}}},
			Clients:   stubDirectory{err: errors.New("db down")},
		}

		rec := httptest.NewRecorder()
		guard.RequireAnyScope("read")(next).ServeHTTP(rec, newGuardRequest(t))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
