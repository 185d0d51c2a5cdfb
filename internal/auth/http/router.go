package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/veldtlabs/passgate/internal/auth/service"
	"github.com/veldtlabs/passgate/internal/auth/store"
	"github.com/veldtlabs/passgate/pkg/httpx"
	"github.com/veldtlabs/passgate/pkg/slogx"

	_ "github.com/veldtlabs/passgate/api/passgate" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	TokenService    *service.TokenService
	PersonalService *service.PersonalTokenService
	ClientService   *service.ClientService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerTokens()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			PassGate Authorization Service API
//	@version		0.1.0
//	@description	OAuth2-style authorization engine: password and client_credentials grants, personal access tokens, and scope-guarded machine endpoints.
//	@description
//	@description				Access tokens are EdDSA-signed JWTs backed by a revocable database record.
//
//	@contact.name				Veldt Labs
//	@contact.url				https://github.com/veldtlabs/passgate
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	validator := &tokenValidator{tokens: r.TokenService}
	guard := &httpx.ClientScopeGuard{
		Validator: validator,
		Clients:   &clientDirectory{clients: r.ClientService},
	}

	// POST /token - strict rate limit by IP (credential-accepting endpoint)
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /revoke - moderate rate limit
	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Introspection endpoint (RFC 7662) - third-party machine clients with
	// the introspect scope only
	introspectHandler := &IntrospectHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/introspect",
		httpx.Chain(introspectHandler,
			guard.RequireAnyScope("introspect"),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerTokens() {
	validator := &tokenValidator{tokens: r.TokenService}
	h := &PersonalTokensHandler{Personal: r.PersonalService}

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(validator),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/tokens", secured(h.HandleList))
	r.Mux.Handle("POST /v1/tokens", secured(h.HandleCreate))
	r.Mux.Handle("DELETE /v1/tokens/{id}", secured(h.HandleRevoke))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.TokenService.Signer),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
