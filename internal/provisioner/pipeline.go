// Package provisioner creates users across the broker and target Keycloak
// realms: idempotent creation in both, role assignment, applications
// attribute merge, and federated-identity links chaining the two realms.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"log"

	"example.com/keycloak-provisioner/internal/keycloak"
)

// AdminClient is the slice of the Keycloak admin API the pipeline needs.
// *keycloak.Client implements it; tests supply an in-memory fake.
type AdminClient interface {
	Login(ctx context.Context) error
	EnsureUser(ctx context.Context, realm string, user keycloak.UserRepresentation) (string, error)
	GetUser(ctx context.Context, realm, userID string) (map[string]any, error)
	UpdateUser(ctx context.Context, realm, userID string, rep map[string]any) error
	GetRealmRole(ctx context.Context, realm, name string) (map[string]any, error)
	AssignRealmRole(ctx context.Context, realm, userID string, role map[string]any) error
	ListIdentityProviders(ctx context.Context, realm string) ([]keycloak.IdentityProvider, error)
	LinkFederatedIdentity(ctx context.Context, realm, userID, providerAlias, remoteUserID, remoteUsername string) error
}

type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// StepResult records the outcome of one pipeline step by name instead of
// silently swallowing best-effort failures.
type StepResult struct {
	Name   string
	Status StepStatus
	Detail string
}

// Result is the terminal outcome for one identity. Succeeded means the user
// exists in both realms; the remaining steps are advisory and only show up
// in Steps.
type Result struct {
	Identity  Identity
	Succeeded bool
	BrokerID  string
	TargetID  string
	Steps     []StepResult
}

func (r *Result) record(s StepResult) { r.Steps = append(r.Steps, s) }

// Pipeline provisions one identity at a time. Steps run in a fixed order;
// creation in either realm aborts the identity on failure, everything after
// is best-effort.
type Pipeline struct {
	client AdminClient
	cfg    Config
}

func NewPipeline(client AdminClient, cfg Config) *Pipeline {
	return &Pipeline{client: client, cfg: cfg}
}

// Provision runs the step sequence for one full name. A panic anywhere in
// the sequence is converted into a failed result so the batch loop keeps
// going.
func (p *Pipeline) Provision(ctx context.Context, fullName, projectName string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("provisioner: panic while provisioning %q: %v", fullName, r)
			res.Succeeded = false
			res.record(StepResult{Name: "panic", Status: StepFailed, Detail: fmt.Sprint(r)})
		}
	}()

	id := DeriveIdentity(fullName, p.cfg.EmailDomain)
	res.Identity = id
	log.Printf("provisioner: provisioning %q as %s for project %q", fullName, id.Email, projectName)

	user := keycloak.UserRepresentation{
		Username:  id.Email,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Enabled:   true,
	}

	brokerID, err := p.client.EnsureUser(ctx, p.cfg.BrokerRealm, user)
	if err != nil {
		log.Printf("provisioner: create user in realm %q failed: %v", p.cfg.BrokerRealm, err)
		res.record(StepResult{Name: "create-broker-user", Status: StepFailed, Detail: err.Error()})
		return res
	}
	res.BrokerID = brokerID
	res.record(StepResult{Name: "create-broker-user", Status: StepOK})

	targetID, err := p.client.EnsureUser(ctx, p.cfg.TargetRealm, user)
	if err != nil {
		log.Printf("provisioner: create user in realm %q failed: %v", p.cfg.TargetRealm, err)
		res.record(StepResult{Name: "create-target-user", Status: StepFailed, Detail: err.Error()})
		return res
	}
	res.TargetID = targetID
	res.record(StepResult{Name: "create-target-user", Status: StepOK})
	res.Succeeded = true

	res.record(p.assignRole(ctx, targetID))
	res.record(p.mergeAttributes(ctx, targetID, []string{id.Email, projectName}))
	// broker realm links to the external SAML assertion by the SAML-form id;
	// target realm links to the broker realm by the broker user id
	res.record(p.link(ctx, "link-broker", p.cfg.BrokerRealm, brokerID, p.cfg.SAMLAlias, id.SAMLID, id.Email))
	res.record(p.link(ctx, "link-target", p.cfg.TargetRealm, targetID, p.cfg.BrokerAlias, brokerID, id.Email))
	return res
}

func (p *Pipeline) assignRole(ctx context.Context, userID string) StepResult {
	role, err := p.client.GetRealmRole(ctx, p.cfg.TargetRealm, p.cfg.RoleName)
	if errors.Is(err, keycloak.ErrNotFound) {
		log.Printf("provisioner: role %q not found in realm %q, skipping assignment", p.cfg.RoleName, p.cfg.TargetRealm)
		return StepResult{Name: "assign-role", Status: StepSkipped, Detail: "role not found"}
	}
	if err != nil {
		log.Printf("provisioner: role lookup failed: %v", err)
		return StepResult{Name: "assign-role", Status: StepFailed, Detail: err.Error()}
	}
	if err := p.client.AssignRealmRole(ctx, p.cfg.TargetRealm, userID, role); err != nil {
		log.Printf("provisioner: role assignment failed: %v", err)
		return StepResult{Name: "assign-role", Status: StepFailed, Detail: err.Error()}
	}
	log.Printf("provisioner: assigned role %q to user %s", p.cfg.RoleName, userID)
	return StepResult{Name: "assign-role", Status: StepOK}
}

func (p *Pipeline) mergeAttributes(ctx context.Context, userID string, values []string) StepResult {
	if err := mergeApplicationAttribute(ctx, p.client, p.cfg.TargetRealm, userID, values); err != nil {
		log.Printf("provisioner: attribute update failed: %v", err)
		return StepResult{Name: "merge-attributes", Status: StepFailed, Detail: err.Error()}
	}
	log.Printf("provisioner: updated applications attribute for user %s", userID)
	return StepResult{Name: "merge-attributes", Status: StepOK}
}
