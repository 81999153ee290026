package provisioner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"example.com/keycloak-provisioner/internal/keycloak"
)

// findProviderAlias resolves the configured alias against the realm's
// identity-provider list with a case-insensitive match, returning the alias
// exactly as the server spells it.
func (p *Pipeline) findProviderAlias(ctx context.Context, realm, alias string) (string, error) {
	providers, err := p.client.ListIdentityProviders(ctx, realm)
	if err != nil {
		return "", err
	}
	for _, pr := range providers {
		if strings.EqualFold(pr.Alias, alias) {
			return pr.Alias, nil
		}
	}
	return "", keycloak.ErrNotFound
}

// link establishes the federated-identity association between a local user
// and a remote record. A realm without the expected provider skips the step
// with a warning; an already-existing link counts as success inside the
// client.
func (p *Pipeline) link(ctx context.Context, step, realm, userID, alias, remoteUserID, remoteUsername string) StepResult {
	found, err := p.findProviderAlias(ctx, realm, alias)
	if errors.Is(err, keycloak.ErrNotFound) {
		log.Printf("provisioner: identity provider %q not found in realm %q, skipping link", alias, realm)
		return StepResult{Name: step, Status: StepSkipped, Detail: fmt.Sprintf("provider %q not configured", alias)}
	}
	if err != nil {
		log.Printf("provisioner: identity provider lookup in realm %q failed: %v", realm, err)
		return StepResult{Name: step, Status: StepFailed, Detail: err.Error()}
	}
	if err := p.client.LinkFederatedIdentity(ctx, realm, userID, found, remoteUserID, remoteUsername); err != nil {
		log.Printf("provisioner: link to provider %q in realm %q failed: %v", found, realm, err)
		return StepResult{Name: step, Status: StepFailed, Detail: err.Error()}
	}
	return StepResult{Name: step, Status: StepOK}
}
