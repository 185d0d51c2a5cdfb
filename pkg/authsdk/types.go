package authsdk

// ============================================================================
// Error Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
// Server code should use the OAuth2Error type from errors.go instead; this
// shape is for consumers decoding error bodies.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is returned when personal access token creation
// fails validation. Errors maps field names to a human-readable message.
type ValidationErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
// This is returned from the POST /v1/oauth2/token endpoint for both the
// password and client_credentials grant types.
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer" per OAuth2 spec
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// IntrospectionResponse represents the RFC 7662 token introspection response.
// When a token is inactive, only Active is present (false) and every other
// field is empty.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	// Optional fields (only present when active=true)
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Iss       string `json:"iss,omitempty"`
	Jti       string `json:"jti,omitempty"`
}

// ============================================================================
// Personal Access Token Types
// ============================================================================

// PersonalTokenRequest is the body of POST /v1/tokens.
type PersonalTokenRequest struct {
	// Name is a user-facing label for the token (1-255 characters)
	Name string `json:"name"`

	// Scopes is the list of scopes to grant. Must be non-empty and each
	// entry must be a known scope (or the "*" wildcard).
	Scopes []string `json:"scopes"`
}

// PersonalTokenClient is the issuing client attached to a listed token.
// The secret hash is never exposed.
type PersonalTokenClient struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PersonalAccess bool   `json:"personal_access"`
	FirstParty     bool   `json:"first_party"`
}

// PersonalTokenRecord is one stored personal access token as returned by
// GET /v1/tokens. The signed credential is never included; it is only handed
// out once at creation time.
type PersonalTokenRecord struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	ClientID  string               `json:"client_id"`
	Client    *PersonalTokenClient `json:"client,omitempty"`
	Scopes    []string             `json:"scopes"`
	Revoked   bool                 `json:"revoked"`
	ExpiresAt int64                `json:"expires_at"`
	CreatedAt int64                `json:"created_at"`
}

// PersonalTokenList is the body of GET /v1/tokens.
type PersonalTokenList struct {
	Tokens []PersonalTokenRecord `json:"tokens"`
}

// PersonalTokenCreated is the body of a successful POST /v1/tokens. It pairs
// the stored record with the signed access token, which is shown exactly once.
type PersonalTokenCreated struct {
	Token       PersonalTokenRecord `json:"token"`
	AccessToken string              `json:"access_token"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthChecks contains the status of individual service dependencies.
type HealthChecks struct {
	Database string `json:"database,omitempty"`
	Signer   string `json:"signer,omitempty"`
}

// HealthResponse is the body of the /livez and /readyz endpoints.
type HealthResponse struct {
	Status  string       `json:"status"`
	Uptime  string       `json:"uptime,omitempty"`
	Version string       `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
