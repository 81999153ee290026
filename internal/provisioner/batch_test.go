package provisioner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"example.com/keycloak-provisioner/internal/keycloak"
)

// fakeAdmin is an in-memory stand-in for the Keycloak admin API.
type fakeAdmin struct {
	loginErr   error
	logins     int
	nextID     int
	users      map[string]map[string]*fakeUser // realm -> email -> user
	byID       map[string]map[string]*fakeUser // realm -> id -> user
	roles      map[string][]string             // realm -> role names
	providers  map[string][]keycloak.IdentityProvider
	links      map[string][]string // realm/userID -> linked aliases
	failCreate map[string]bool     // realm/email -> force creation failure
	created    []string            // audit of actual creations, realm/email
	assigned   []string            // audit of role assignments, realm/userID/role
}

type fakeUser struct {
	id  string
	rep map[string]any
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{
		users: map[string]map[string]*fakeUser{},
		byID:  map[string]map[string]*fakeUser{},
		roles: map[string][]string{
			"codemie-prod": {"developer"},
		},
		providers: map[string][]keycloak.IdentityProvider{
			"master":       {{Alias: "SAML", ProviderID: "saml", Enabled: true}},
			"codemie-prod": {{Alias: "broker", ProviderID: "oidc", Enabled: true}},
		},
		links:      map[string][]string{},
		failCreate: map[string]bool{},
	}
}

func (f *fakeAdmin) Login(ctx context.Context) error {
	f.logins++
	return f.loginErr
}

func (f *fakeAdmin) EnsureUser(ctx context.Context, realm string, user keycloak.UserRepresentation) (string, error) {
	if f.users[realm] == nil {
		f.users[realm] = map[string]*fakeUser{}
		f.byID[realm] = map[string]*fakeUser{}
	}
	if u, ok := f.users[realm][user.Email]; ok {
		return u.id, nil
	}
	if f.failCreate[realm+"/"+user.Email] {
		return "", &keycloak.APIError{Method: "POST", Status: 500, Body: "boom"}
	}
	f.nextID++
	u := &fakeUser{
		id: fmt.Sprintf("%s-user-%d", realm, f.nextID),
		rep: map[string]any{
			"username":  user.Username,
			"email":     user.Email,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"enabled":   user.Enabled,
		},
	}
	f.users[realm][user.Email] = u
	f.byID[realm][u.id] = u
	f.created = append(f.created, realm+"/"+user.Email)
	return u.id, nil
}

func (f *fakeAdmin) GetUser(ctx context.Context, realm, userID string) (map[string]any, error) {
	u, ok := f.byID[realm][userID]
	if !ok {
		return nil, keycloak.ErrNotFound
	}
	return u.rep, nil
}

func (f *fakeAdmin) UpdateUser(ctx context.Context, realm, userID string, rep map[string]any) error {
	u, ok := f.byID[realm][userID]
	if !ok {
		return keycloak.ErrNotFound
	}
	u.rep = rep
	return nil
}

func (f *fakeAdmin) GetRealmRole(ctx context.Context, realm, name string) (map[string]any, error) {
	for _, r := range f.roles[realm] {
		if r == name {
			return map[string]any{"name": name}, nil
		}
	}
	return nil, keycloak.ErrNotFound
}

func (f *fakeAdmin) AssignRealmRole(ctx context.Context, realm, userID string, role map[string]any) error {
	f.assigned = append(f.assigned, fmt.Sprintf("%s/%s/%v", realm, userID, role["name"]))
	return nil
}

func (f *fakeAdmin) ListIdentityProviders(ctx context.Context, realm string) ([]keycloak.IdentityProvider, error) {
	return f.providers[realm], nil
}

func (f *fakeAdmin) LinkFederatedIdentity(ctx context.Context, realm, userID, providerAlias, remoteUserID, remoteUsername string) error {
	f.links[realm+"/"+userID] = append(f.links[realm+"/"+userID], providerAlias)
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Pause = 0
	return cfg
}

func TestRunnerReportOrder(t *testing.T) {
	fa := newFakeAdmin()
	report, err := NewRunner(fa, testConfig()).Run(context.Background(), "proj", []string{"John Doe", "Jane Smith"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(report.Succeeded, []string{"John Doe", "Jane Smith"}) {
		t.Fatalf("unexpected succeeded: %v", report.Succeeded)
	}
	if len(report.Failed) != 0 {
		t.Fatalf("unexpected failed: %v", report.Failed)
	}
	if report.Total() != 2 {
		t.Fatalf("unexpected total: %d", report.Total())
	}
	if fa.logins != 1 {
		t.Fatalf("expected one up-front login, got %d", fa.logins)
	}
}

func TestRunnerIsolatesFailure(t *testing.T) {
	fa := newFakeAdmin()
	fa.failCreate["master/jane_smith@domain.com"] = true

	names := []string{"John Doe", "Jane Smith", "Bob Johnson"}
	report, err := NewRunner(fa, testConfig()).Run(context.Background(), "proj", names)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(report.Failed, []string{"Jane Smith"}) {
		t.Fatalf("unexpected failed: %v", report.Failed)
	}
	if !reflect.DeepEqual(report.Succeeded, []string{"John Doe", "Bob Johnson"}) {
		t.Fatalf("unexpected succeeded: %v", report.Succeeded)
	}
	if report.Total() != len(names) {
		t.Fatalf("report total %d != input %d", report.Total(), len(names))
	}
}

func TestRunnerAuthFailureAborts(t *testing.T) {
	fa := newFakeAdmin()
	fa.loginErr = keycloak.ErrAuthentication

	_, err := NewRunner(fa, testConfig()).Run(context.Background(), "proj", []string{"John Doe"})
	if !errors.Is(err, keycloak.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if len(fa.created) != 0 {
		t.Fatalf("no users should have been created, got %v", fa.created)
	}
}

func TestRunnerSecondRunIdempotent(t *testing.T) {
	fa := newFakeAdmin()
	cfg := testConfig()
	ctx := context.Background()

	if _, err := NewRunner(fa, cfg).Run(ctx, "p1", []string{"John Doe"}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := NewRunner(fa, cfg).Run(ctx, "p2", []string{"John Doe"}); err != nil {
		t.Fatalf("second run: %v", err)
	}

	// one user per realm, not two
	if len(fa.created) != 2 {
		t.Fatalf("expected 2 creations (one per realm), got %v", fa.created)
	}

	// applications attribute accumulated both projects, once each
	u := fa.users["codemie-prod"]["john_doe@domain.com"]
	attrs := u.rep["attributes"].(map[string]any)
	apps := attrs["applications"].([]string)
	if len(apps) != 1 {
		t.Fatalf("expected single comma-joined value, got %v", apps)
	}
	if apps[0] != "john_doe@domain.com,p1,p2" {
		t.Fatalf("unexpected applications value: %q", apps[0])
	}
}

func TestPipelineLinksBothRealms(t *testing.T) {
	fa := newFakeAdmin()
	res := NewPipeline(fa, testConfig()).Provision(context.Background(), "John Doe", "proj")
	if !res.Succeeded {
		t.Fatalf("expected success, steps: %+v", res.Steps)
	}
	// alias matching is case-insensitive and uses the server's spelling
	if got := fa.links["master/"+res.BrokerID]; !reflect.DeepEqual(got, []string{"SAML"}) {
		t.Fatalf("unexpected broker links: %v", got)
	}
	if got := fa.links["codemie-prod/"+res.TargetID]; !reflect.DeepEqual(got, []string{"broker"}) {
		t.Fatalf("unexpected target links: %v", got)
	}
}

func TestPipelineSkipsMissingProvider(t *testing.T) {
	fa := newFakeAdmin()
	fa.providers["codemie-prod"] = nil

	res := NewPipeline(fa, testConfig()).Provision(context.Background(), "John Doe", "proj")
	if !res.Succeeded {
		t.Fatalf("missing provider must not fail the identity, steps: %+v", res.Steps)
	}
	var linkTarget *StepResult
	for i := range res.Steps {
		if res.Steps[i].Name == "link-target" {
			linkTarget = &res.Steps[i]
		}
	}
	if linkTarget == nil || linkTarget.Status != StepSkipped {
		t.Fatalf("expected link-target skipped, got %+v", linkTarget)
	}
}

func TestPipelineTargetCreationFatal(t *testing.T) {
	fa := newFakeAdmin()
	fa.failCreate["codemie-prod/john_doe@domain.com"] = true

	res := NewPipeline(fa, testConfig()).Provision(context.Background(), "John Doe", "proj")
	if res.Succeeded {
		t.Fatal("target-realm creation failure must fail the identity")
	}
	if len(fa.assigned) != 0 {
		t.Fatalf("no role should be assigned after a fatal step, got %v", fa.assigned)
	}
	last := res.Steps[len(res.Steps)-1]
	if last.Name != "create-target-user" || last.Status != StepFailed {
		t.Fatalf("unexpected terminal step: %+v", last)
	}
}

func TestPipelineRoleMissingIsAdvisory(t *testing.T) {
	fa := newFakeAdmin()
	fa.roles["codemie-prod"] = nil

	res := NewPipeline(fa, testConfig()).Provision(context.Background(), "John Doe", "proj")
	if !res.Succeeded {
		t.Fatalf("role miss must not fail the identity, steps: %+v", res.Steps)
	}
	for _, s := range res.Steps {
		if s.Name == "assign-role" {
			if s.Status != StepSkipped || !strings.Contains(s.Detail, "not found") {
				t.Fatalf("unexpected assign-role outcome: %+v", s)
			}
			return
		}
	}
	t.Fatal("assign-role step missing from result")
}
