package keycloak

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication means the password grant failed or returned no token.
	// Nothing can be provisioned without a token, so callers treat it as fatal.
	ErrAuthentication = errors.New("keycloak: authentication failed")

	// ErrNotFound is returned by lookups (user, role, identity provider)
	// that come back empty or 404.
	ErrNotFound = errors.New("keycloak: not found")
)

// TransportError is a network-level failure that persisted through the
// single retry.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("keycloak: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError reports a non-success status from the admin API, keeping the
// response body for the operator log.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("keycloak: %s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}
