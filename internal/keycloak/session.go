package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// expiryMargin is subtracted from the server-reported lifetime so a token is
// refreshed before clock skew or request latency can make the server reject it.
const expiryMargin = 30 * time.Second

// session owns the bearer token and its expiry. It is mutated only by
// authenticate; the provisioner runs on a single goroutine so no lock is
// held here. Anything that fans identities out in parallel must add one.
type session struct {
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func (s *session) valid() bool {
	return s.token != "" && s.now().Before(s.expiresAt)
}

func (s *session) invalidate() { s.token = "" }

func (s *session) store(token string, expiresIn int) {
	s.token = token
	s.expiresAt = s.now().Add(time.Duration(expiresIn)*time.Second - expiryMargin)
}

// ensureValid returns the current token, authenticating first if the token
// is missing or past its margin-adjusted expiry.
func (c *Client) ensureValid(ctx context.Context) (string, error) {
	if c.session.valid() {
		return c.session.token, nil
	}
	if err := c.authenticate(ctx); err != nil {
		return "", err
	}
	return c.session.token, nil
}

// authenticate performs the password grant against the master realm and
// stores the returned token on the session.
func (c *Client) authenticate(ctx context.Context) error {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.cfg.ServerURL, c.cfg.MasterRealm)

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		log.Printf("keycloak: token request failed %s: %s", resp.Status, string(body))
		return fmt.Errorf("%w: %s", ErrAuthentication, resp.Status)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("%w: invalid token response: %v", ErrAuthentication, err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("%w: no access_token in response", ErrAuthentication)
	}
	if tok.ExpiresIn <= 0 {
		tok.ExpiresIn = 300
	}
	c.session.store(tok.AccessToken, tok.ExpiresIn)
	log.Printf("keycloak: obtained admin token, valid until %s", c.session.expiresAt.Format("15:04:05"))
	return nil
}
