package provisioner

import "strings"

// Identity is the deterministic account derivation for one person. The same
// full name and domain always produce the same values, which is what makes
// repeated runs converge on the same backend records.
type Identity struct {
	FullName  string
	Email     string // lowercase, spaces replaced by underscores, plus domain
	SAMLID    string // original case, spaces replaced by underscores, plus domain
	FirstName string
	LastName  string
}

// DeriveIdentity computes the identity for a full name like "John Doe":
// email john_doe@domain.com, SAML id John_Doe@domain.com, first/last split
// on the first space.
func DeriveIdentity(fullName, emailDomain string) Identity {
	parts := strings.Fields(fullName)
	name := strings.Join(parts, " ")

	var first, last string
	if len(parts) > 0 {
		first = parts[0]
	}
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}

	underscored := strings.ReplaceAll(name, " ", "_")
	return Identity{
		FullName:  name,
		Email:     strings.ToLower(underscored) + emailDomain,
		SAMLID:    underscored + emailDomain,
		FirstName: first,
		LastName:  last,
	}
}

// SplitNames parses a comma-separated list of full names, trimming
// whitespace and dropping empty entries.
func SplitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
