/*
Package authsdk defines the wire types shared between the PassGate service
and its consumers: OAuth2 token responses, RFC 6749 error values, personal
access token payloads, and health responses.

Handlers use the predefined *OAuth2Error values to write spec-compliant
error bodies:

	if clientID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

Consumers decode the same types from response bodies, so the error codes and
JSON field names in this package are the contract of the HTTP API.
*/
package authsdk
