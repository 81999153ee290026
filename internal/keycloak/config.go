package keycloak

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds connection settings for the Keycloak admin API.
type Config struct {
	ServerURL   string        // base URL without trailing slash
	MasterRealm string        // realm that issues the admin token
	ClientID    string        // OAuth client used for the password grant
	Username    string
	Password    string
	Timeout     time.Duration // per-request timeout for the HTTP client
}

// ConfigFromEnv reads connection settings from the environment.
// KEYCLOAK_SERVER_URL, KEYCLOAK_ADMIN_USERNAME and KEYCLOAK_ADMIN_PASSWORD
// are required; everything else has defaults.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		ServerURL:   strings.TrimSuffix(os.Getenv("KEYCLOAK_SERVER_URL"), "/"),
		MasterRealm: envOr("KEYCLOAK_MASTER_REALM", "master"),
		ClientID:    envOr("KEYCLOAK_CLIENT_ID", "admin-cli"),
		Username:    os.Getenv("KEYCLOAK_ADMIN_USERNAME"),
		Password:    os.Getenv("KEYCLOAK_ADMIN_PASSWORD"),
		Timeout:     30 * time.Second,
	}
	if cfg.ServerURL == "" {
		return Config{}, fmt.Errorf("KEYCLOAK_SERVER_URL not set")
	}
	if cfg.Username == "" {
		return Config{}, fmt.Errorf("KEYCLOAK_ADMIN_USERNAME not set")
	}
	if cfg.Password == "" {
		return Config{}, fmt.Errorf("KEYCLOAK_ADMIN_PASSWORD not set")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
