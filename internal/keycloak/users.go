package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
)

// UserRepresentation carries the fields the provisioner sets when creating a
// user. Reads round-trip the server's full representation as a map instead
// (see GetUser) so fields this tool does not know about survive updates.
type UserRepresentation struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Enabled       bool   `json:"enabled"`
	EmailVerified bool   `json:"emailVerified"`
}

// IdentityProvider is one entry from a realm's identity-provider list.
type IdentityProvider struct {
	Alias       string `json:"alias"`
	DisplayName string `json:"displayName"`
	ProviderID  string `json:"providerId"`
	Enabled     bool   `json:"enabled"`
}

// FindUserByEmail looks a user up by exact email match and returns its id.
// Returns ErrNotFound when the realm has no such user.
func (c *Client) FindUserByEmail(ctx context.Context, realm, email string) (string, error) {
	u := c.adminURL(realm, "users?email=%s", url.QueryEscape(email))
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp, http.MethodGet, u)
	}
	var users []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return "", fmt.Errorf("decode user list: %w", err)
	}
	if len(users) == 0 {
		return "", ErrNotFound
	}
	return users[0].ID, nil
}

// EnsureUser finds a user by email or creates it, returning the user id.
// An existing user is returned untouched; this call never overwrites.
func (c *Client) EnsureUser(ctx context.Context, realm string, user UserRepresentation) (string, error) {
	id, err := c.FindUserByEmail(ctx, realm, user.Email)
	if err == nil {
		log.Printf("keycloak: user %s already exists in realm %q", user.Email, realm)
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("find user %s: %w", user.Email, err)
	}

	u := c.adminURL(realm, "users")
	resp, err := c.do(ctx, http.MethodPost, u, user)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", apiError(resp, http.MethodPost, u)
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("create user %s: no Location header in response", user.Email)
	}
	parts := strings.Split(loc, "/")
	id = parts[len(parts)-1]
	log.Printf("keycloak: created user %s in realm %q id=%s", user.Email, realm, id)
	return id, nil
}

// GetUser returns the full server-side representation of a user as a map so
// the caller can write it back without dropping unknown fields.
func (c *Client) GetUser(ctx context.Context, realm, userID string) (map[string]any, error) {
	u := c.adminURL(realm, "users/%s", userID)
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, http.MethodGet, u)
	}
	var rep map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return rep, nil
}

// UpdateUser PUTs the full user representation back.
func (c *Client) UpdateUser(ctx context.Context, realm, userID string, rep map[string]any) error {
	u := c.adminURL(realm, "users/%s", userID)
	resp, err := c.do(ctx, http.MethodPut, u, rep)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp, http.MethodPut, u)
	}
	return nil
}

// GetRealmRole looks a realm role up by name. Returns ErrNotFound on 404.
func (c *Client) GetRealmRole(ctx context.Context, realm, name string) (map[string]any, error) {
	u := c.adminURL(realm, "roles/%s", url.PathEscape(name))
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, http.MethodGet, u)
	}
	var role map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&role); err != nil {
		return nil, fmt.Errorf("decode role: %w", err)
	}
	return role, nil
}

// AssignRealmRole adds a realm-level role mapping to a user.
func (c *Client) AssignRealmRole(ctx context.Context, realm, userID string, role map[string]any) error {
	u := c.adminURL(realm, "users/%s/role-mappings/realm", userID)
	resp, err := c.do(ctx, http.MethodPost, u, []map[string]any{role})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp, http.MethodPost, u)
	}
	return nil
}

// ListIdentityProviders returns the identity providers configured on a realm.
func (c *Client) ListIdentityProviders(ctx context.Context, realm string) ([]IdentityProvider, error) {
	u := c.adminURL(realm, "identity-provider/instances")
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, http.MethodGet, u)
	}
	var providers []IdentityProvider
	if err := json.NewDecoder(resp.Body).Decode(&providers); err != nil {
		return nil, fmt.Errorf("decode identity providers: %w", err)
	}
	return providers, nil
}

// LinkFederatedIdentity attaches a federated-identity record to a local
// user. A 409 means the link already exists and is treated as success.
func (c *Client) LinkFederatedIdentity(ctx context.Context, realm, userID, providerAlias, remoteUserID, remoteUsername string) error {
	u := c.adminURL(realm, "users/%s/federated-identity/%s", userID, url.PathEscape(providerAlias))
	link := map[string]string{
		"userId":   remoteUserID,
		"userName": remoteUsername,
	}
	resp, err := c.do(ctx, http.MethodPost, u, link)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusCreated:
		log.Printf("keycloak: linked user %s to provider %q in realm %q", userID, providerAlias, realm)
		return nil
	case http.StatusConflict:
		log.Printf("keycloak: user %s already linked to provider %q in realm %q", userID, providerAlias, realm)
		return nil
	default:
		return apiError(resp, http.MethodPost, u)
	}
}
