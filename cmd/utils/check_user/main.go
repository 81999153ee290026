// check_user looks a provisioned user up in both realms and prints what a
// previous run left behind: ids, the applications attribute, and whether
// the expected identity providers exist. Read-only.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"example.com/keycloak-provisioner/internal/keycloak"
	"example.com/keycloak-provisioner/internal/provisioner"
)

func main() {
	// load local .env for convenience
	_ = godotenv.Load()
	fullName := flag.String("name", "", `full name of the user, e.g. "John Doe"`)
	flag.Parse()

	if *fullName == "" {
		fmt.Println(`Usage: check_user -name "John Doe"`)
		log.Fatal("-name is required")
	}

	cfg := provisioner.ConfigFromEnv()
	client, err := keycloak.NewClientFromEnv()
	if err != nil {
		log.Fatalf("keycloak client: %v", err)
	}

	ctx := context.Background()
	if err := client.Login(ctx); err != nil {
		log.Fatalf("authenticate: %v", err)
	}

	id := provisioner.DeriveIdentity(*fullName, cfg.EmailDomain)
	log.Printf("derived email %s (SAML id %s)", id.Email, id.SAMLID)

	for _, realm := range []string{cfg.BrokerRealm, cfg.TargetRealm} {
		userID, err := client.FindUserByEmail(ctx, realm, id.Email)
		if errors.Is(err, keycloak.ErrNotFound) {
			log.Printf("realm %q: user not found", realm)
			continue
		}
		if err != nil {
			log.Fatalf("realm %q: lookup failed: %v", realm, err)
		}
		log.Printf("realm %q: user id %s", realm, userID)

		rep, err := client.GetUser(ctx, realm, userID)
		if err != nil {
			log.Printf("realm %q: read user failed: %v", realm, err)
			continue
		}
		if attrs, ok := rep["attributes"].(map[string]any); ok {
			log.Printf("realm %q: applications=%v", realm, attrs["applications"])
		}

		providers, err := client.ListIdentityProviders(ctx, realm)
		if err != nil {
			log.Printf("realm %q: identity provider list failed: %v", realm, err)
			continue
		}
		for _, p := range providers {
			log.Printf("realm %q: identity provider %q (%s)", realm, p.Alias, p.ProviderID)
		}
	}
}
