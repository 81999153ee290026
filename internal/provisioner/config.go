package provisioner

import (
	"os"
	"strings"
	"time"
)

// defaultPause is the delay between identities; a large batch would trip the
// server's rate limits without it.
const defaultPause = 500 * time.Millisecond

// Config carries the realm and convention settings for one provisioning run.
type Config struct {
	BrokerRealm string // upstream realm performing external authentication
	TargetRealm string // downstream realm carrying roles and attributes
	RoleName    string // realm role assigned in the target realm
	SAMLAlias   string // identity-provider alias expected in the broker realm
	BrokerAlias string // identity-provider alias expected in the target realm
	EmailDomain string // suffix for derived emails, starts with "@"
	Pause       time.Duration
}

func DefaultConfig() Config {
	return Config{
		BrokerRealm: "master",
		TargetRealm: "codemie-prod",
		RoleName:    "developer",
		SAMLAlias:   "saml",
		BrokerAlias: "broker",
		EmailDomain: "@domain.com",
		Pause:       defaultPause,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies environment overrides.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("KEYCLOAK_BROKER_REALM"); v != "" {
		cfg.BrokerRealm = v
	}
	if v := os.Getenv("KEYCLOAK_TARGET_REALM"); v != "" {
		cfg.TargetRealm = v
	}
	if v := os.Getenv("PROVISIONER_ROLE"); v != "" {
		cfg.RoleName = v
	}
	if v := os.Getenv("SAML_PROVIDER_ALIAS"); v != "" {
		cfg.SAMLAlias = v
	}
	if v := os.Getenv("BROKER_PROVIDER_ALIAS"); v != "" {
		cfg.BrokerAlias = v
	}
	if v := os.Getenv("EMAIL_DOMAIN"); v != "" {
		cfg.EmailDomain = NormalizeDomain(v)
	}
	return cfg
}

// NormalizeDomain trims the value and guarantees the leading "@".
func NormalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.HasPrefix(domain, "@") {
		return domain
	}
	return "@" + domain
}
