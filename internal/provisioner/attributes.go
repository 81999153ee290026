package provisioner

import (
	"context"
	"fmt"
	"strings"
)

// applicationsAttr is the multi-valued profile attribute tracking which
// applications and projects a user belongs to. The backend stores it as a
// list containing a single comma-joined string.
const applicationsAttr = "applications"

// mergeApplications flattens whatever shape the backend returned for the
// attribute (absent, a bare string, or a list of comma-joined strings) into
// an ordered token set, unions in add, and re-joins. Existing tokens are
// never dropped and keep their first-seen order.
func mergeApplications(existing any, add []string) string {
	var tokens []string
	seen := map[string]bool{}
	appendToken := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		tokens = append(tokens, v)
	}
	collect := func(s string) {
		for _, part := range strings.Split(s, ",") {
			appendToken(part)
		}
	}

	switch v := existing.(type) {
	case nil:
	case string:
		collect(v)
	case []string:
		for _, s := range v {
			collect(s)
		}
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				collect(s)
			}
		}
	default:
		collect(fmt.Sprint(v))
	}

	for _, v := range add {
		appendToken(v)
	}
	return strings.Join(tokens, ",")
}

// mergeApplicationAttribute reads the user's full representation, unions
// values into the applications attribute and writes the representation back
// unchanged otherwise. The backend has no partial-attribute patch, so the
// write only ever happens after a successful full read.
func mergeApplicationAttribute(ctx context.Context, c AdminClient, realm, userID string, values []string) error {
	rep, err := c.GetUser(ctx, realm, userID)
	if err != nil {
		return fmt.Errorf("read user %s: %w", userID, err)
	}
	attrs, _ := rep["attributes"].(map[string]any)
	if attrs == nil {
		attrs = map[string]any{}
	}
	attrs[applicationsAttr] = []string{mergeApplications(attrs[applicationsAttr], values)}
	rep["attributes"] = attrs
	if err := c.UpdateUser(ctx, realm, userID, rep); err != nil {
		return fmt.Errorf("write user %s: %w", userID, err)
	}
	return nil
}
