// Package keycloak is a minimal client for the Keycloak admin REST API,
// covering the calls the user provisioner needs: password-grant
// authentication, user find-or-create, role mapping, attribute updates and
// federated-identity links.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// maxAttempts bounds every logical admin call: the original attempt plus
// one retry, consumed either by a 401 (after forcing re-authentication)
// or by a network-level error.
const maxAttempts = 2

// Client talks to one Keycloak server on behalf of the admin user.
// It is not safe for concurrent use; the token refresh is unsynchronized.
type Client struct {
	cfg     Config
	http    *http.Client
	session session
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.ServerURL = strings.TrimSuffix(cfg.ServerURL, "/")
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		session: session{now: time.Now},
	}
}

func NewClientFromEnv() (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg), nil
}

// Login performs the password grant eagerly. Batch callers use it to fail
// fast before touching any realm.
func (c *Client) Login(ctx context.Context) error {
	return c.authenticate(ctx)
}

// do executes one admin API call with the bearer token attached. A 401
// response invalidates the session and retries once with a fresh token; a
// network error retries once with the current token. Non-2xx responses are
// returned as-is for the caller to interpret.
func (c *Client) do(ctx context.Context, method, reqURL string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = b
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		token, err := c.ensureValid(ctx)
		if err != nil {
			return nil, err
		}

		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			log.Printf("keycloak: %s %s attempt %d/%d failed: %v", method, reqURL, attempt+1, maxAttempts, err)
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt < maxAttempts-1 {
			resp.Body.Close()
			log.Printf("keycloak: received 401, refreshing token")
			c.session.invalidate()
			continue
		}
		return resp, nil
	}
	return nil, &TransportError{Method: method, URL: reqURL, Err: lastErr}
}

// apiError drains the response body into an APIError. The caller must not
// have consumed the body yet.
func apiError(resp *http.Response, method, reqURL string) error {
	b, _ := io.ReadAll(resp.Body)
	return &APIError{Method: method, URL: reqURL, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

func (c *Client) adminURL(realm, format string, args ...any) string {
	return fmt.Sprintf("%s/admin/realms/%s/%s", c.cfg.ServerURL, realm, fmt.Sprintf(format, args...))
}
