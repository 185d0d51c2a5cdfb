package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veldtlabs/passgate/internal/auth/domain"
	"github.com/veldtlabs/passgate/internal/auth/service"
	"github.com/veldtlabs/passgate/internal/auth/store"
	"github.com/veldtlabs/passgate/internal/auth/store/drivers/sqlite"
	"github.com/veldtlabs/passgate/pkg/authsdk"
	"github.com/veldtlabs/passgate/pkg/cryptox"
	"github.com/veldtlabs/passgate/pkg/idx"
	"github.com/veldtlabs/passgate/pkg/jwtx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "passgate-http-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()

	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testEnv struct {
	router *Router
	store  store.Store

	user          domain.User
	webClient     domain.Client
	machineClient domain.Client

	webSecret     string
	machineSecret string

	nextIP int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	pemKey, err := jwtx.GenerateEdDSAKeyPEM()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)

	const issuer = "https://auth.test"
	tokens := &service.TokenService{
		Signer:    signer,
		Verifier:  jwtx.NewVerifierEdDSA("test-key", signer.PublicKey(), issuer),
		Store:     st,
		Resolver:  &service.CredentialResolver{Source: service.NewStoreUserSource(st)},
		Scopes:    service.NewScopeCatalog("orders:read", "orders:write", "introspect"),
		Issuer:    issuer,
		AccessTTL: 15 * time.Minute,
	}

	env := &testEnv{store: st, webSecret: "web-secret", machineSecret: "machine-secret"}
	env.user = seedHTTPUser(t, st, "alice@example.com", "hunter2hunter2")
	env.webClient = seedHTTPClient(t, st, domain.Client{
		Name:       "Web Client",
		SecretHash: mustHash(t, env.webSecret),
		Scopes:     []string{"orders:read", "orders:write"},
		FirstParty: true,
	})
	env.machineClient = seedHTTPClient(t, st, domain.Client{
		Name:       "Machine Client",
		SecretHash: mustHash(t, env.machineSecret),
		Scopes:     []string{"introspect"},
	})
	personalClient := seedHTTPClient(t, st, domain.Client{
		Name:           "Personal Access Client",
		Scopes:         []string{"*"},
		FirstParty:     true,
		PersonalAccess: true,
	})

	router := NewRouter("test", st, slog.New(slog.DiscardHandler))
	router.TokenService = tokens
	router.PersonalService = &service.PersonalTokenService{
		Store:    st,
		Tokens:   tokens,
		Scopes:   tokens.Scopes,
		ClientID: personalClient.ID,
		TTL:      24 * time.Hour,
	}
	router.ClientService = &service.ClientService{Store: st}
	router.ApplyRoutes()
	env.router = router

	return env
}

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	hash, err := cryptox.HashPassword(secret)
	require.NoError(t, err)
	return hash
}

func seedHTTPUser(t *testing.T, st store.Store, email, password string) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: mustHash(t, password),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func seedHTTPClient(t *testing.T, st store.Store, c domain.Client) domain.Client {
	t.Helper()
	now := time.Now().UTC()
	c.ID = idx.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now
	require.NoError(t, st.Clients().CreateClient(context.Background(), c))
	return c
}

// do serves a request through the router. Each call gets its own client IP
// so the per-IP rate limits never interfere across subtests.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	e.nextIP++
	req.RemoteAddr = fmt.Sprintf("10.1.%d.%d:40000", e.nextIP/250, e.nextIP%250+1)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) passwordGrant(t *testing.T, scope string) authsdk.TokenResponse {
	t.Helper()
	rec := e.postForm("/v1/oauth2/token", url.Values{
		"grant_type":    {"password"},
		"client_id":     {e.webClient.ID},
		"client_secret": {e.webSecret},
		"username":      {"alice@example.com"},
		"password":      {"hunter2hunter2"},
		"scope":         {scope},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authsdk.TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (e *testEnv) clientCredentialsGrant(t *testing.T) authsdk.TokenResponse {
	t.Helper()
	rec := e.postForm("/v1/oauth2/token", url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {e.machineClient.ID},
		"client_secret": {e.machineSecret},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authsdk.TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("password grant returns a bearer token", func(t *testing.T) {
		resp := env.passwordGrant(t, "orders:read")
		require.NotEmpty(t, resp.AccessToken)
		require.Equal(t, "Bearer", resp.TokenType)
		require.Equal(t, "orders:read", resp.Scope)
		require.InDelta(t, int((15 * time.Minute).Seconds()), resp.ExpiresIn, 1)
	})

	t.Run("wrong password is an invalid_grant body", func(t *testing.T) {
		rec := env.postForm("/v1/oauth2/token", url.Values{
			"grant_type":    {"password"},
			"client_id":     {env.webClient.ID},
			"client_secret": {env.webSecret},
			"username":      {"alice@example.com"},
			"password":      {"wrong"},
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp authsdk.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, resp.Error)
	})

	t.Run("unsupported grant type", func(t *testing.T) {
		rec := env.postForm("/v1/oauth2/token", url.Values{
			"grant_type": {"authorization_code"},
			"client_id":  {env.webClient.ID},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp authsdk.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, authsdk.ErrorCodeUnsupportedGrantType, resp.Error)
	})

	t.Run("missing parameters", func(t *testing.T) {
		rec := env.postForm("/v1/oauth2/token", url.Values{
			"grant_type": {"password"},
			"client_id":  {env.webClient.ID},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth2/token", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := env.do(req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPersonalTokenEndpoints(t *testing.T) {
	env := newTestEnv(t)
	session := env.passwordGrant(t, "orders:read")

	authed := func(method, path string, body io.Reader) *http.Request {
		req := httptest.NewRequest(method, path, body)
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req
	}

	t.Run("unauthenticated list is 401", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/tokens", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("list starts empty", func(t *testing.T) {
		rec := env.do(authed(http.MethodGet, "/v1/tokens", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var list authsdk.PersonalTokenList
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
		require.Empty(t, list.Tokens)
	})

	var created authsdk.PersonalTokenCreated

	t.Run("create returns the record and the one-time credential", func(t *testing.T) {
		body := strings.NewReader(`{"name": "CI deploy key", "scopes": ["orders:read"]}`)
		rec := env.do(authed(http.MethodPost, "/v1/tokens", body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
		require.NotEmpty(t, created.AccessToken)
		require.Equal(t, "CI deploy key", created.Token.Name)
		require.Equal(t, []string{"orders:read"}, created.Token.Scopes)
		require.False(t, created.Token.Revoked)
	})

	t.Run("validation failures come back as a field map", func(t *testing.T) {
		body := strings.NewReader(`{"name": "", "scopes": ["no:such"]}`)
		rec := env.do(authed(http.MethodPost, "/v1/tokens", body))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp authsdk.ValidationErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Contains(t, resp.Errors, "name")
		require.Contains(t, resp.Errors, "scopes")
	})

	t.Run("list shows the created token without its credential", func(t *testing.T) {
		rec := env.do(authed(http.MethodGet, "/v1/tokens", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		require.NotContains(t, body, created.AccessToken)
		require.NotContains(t, body, "secret")

		var list authsdk.PersonalTokenList
		require.NoError(t, json.Unmarshal([]byte(body), &list))
		require.Len(t, list.Tokens, 1)
		require.Equal(t, created.Token.ID, list.Tokens[0].ID)

		client := list.Tokens[0].Client
		require.NotNil(t, client)
		require.Equal(t, list.Tokens[0].ClientID, client.ID)
		require.Equal(t, "Personal Access Client", client.Name)
		require.True(t, client.PersonalAccess)
	})

	t.Run("deleting an unknown id is 404", func(t *testing.T) {
		rec := env.do(authed(http.MethodDelete, "/v1/tokens/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete revokes and keeps the record", func(t *testing.T) {
		rec := env.do(authed(http.MethodDelete, "/v1/tokens/"+created.Token.ID, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(authed(http.MethodGet, "/v1/tokens", nil))
		var list authsdk.PersonalTokenList
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
		require.Len(t, list.Tokens, 1)
		require.True(t, list.Tokens[0].Revoked)
	})

	t.Run("revoked credential no longer authenticates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/tokens", nil)
		req.Header.Set("Authorization", "Bearer "+created.AccessToken)
		rec := env.do(req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestIntrospectEndpoint(t *testing.T) {
	env := newTestEnv(t)
	session := env.passwordGrant(t, "orders:read")
	machine := env.clientCredentialsGrant(t)

	introspect := func(bearer, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth2/introspect",
			strings.NewReader(url.Values{"token": {token}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+bearer)
		return env.do(req)
	}

	t.Run("machine client introspects a live token", func(t *testing.T) {
		rec := introspect(machine.AccessToken, session.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp authsdk.IntrospectionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.True(t, resp.Active)
		require.Equal(t, "orders:read", resp.Scope)
		require.Equal(t, env.user.ID, resp.Sub)
		require.Equal(t, env.webClient.ID, resp.ClientID)
	})

	t.Run("revoked tokens introspect inactive", func(t *testing.T) {
		rec := env.postForm("/v1/oauth2/revoke", url.Values{"token": {session.AccessToken}})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = introspect(machine.AccessToken, session.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp authsdk.IntrospectionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.False(t, resp.Active)
		require.Empty(t, resp.Sub)
	})

	t.Run("first-party session tokens cannot use the guard", func(t *testing.T) {
		fresh := env.passwordGrant(t, "orders:read")
		rec := introspect(fresh.AccessToken, fresh.AccessToken)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing bearer is 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/oauth2/introspect",
			strings.NewReader(url.Values{"token": {session.AccessToken}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := env.do(req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "ok", resp.Checks.Database)
	require.Equal(t, "ok", resp.Checks.Signer)
}
