package provisioner

import (
	"context"
	"fmt"

	"example.com/keycloak-provisioner/internal/keycloak"
)

// RunTask is the thin adapter used by the worker: it builds the Keycloak
// client and run configuration from the environment and executes one batch
// described by a task payload.
func RunTask(ctx context.Context, projectName string, payload map[string]string) (*Report, error) {
	client, err := keycloak.NewClientFromEnv()
	if err != nil {
		return nil, fmt.Errorf("keycloak client: %w", err)
	}
	cfg := ConfigFromEnv()
	if d := NormalizeDomain(payload["email_domain"]); d != "" {
		cfg.EmailDomain = d
	}
	names := SplitNames(payload["user_names"])
	if len(names) == 0 {
		return nil, fmt.Errorf("task payload has no user names")
	}
	return NewRunner(client, cfg).Run(ctx, projectName, names)
}
