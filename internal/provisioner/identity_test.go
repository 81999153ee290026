package provisioner

import (
	"reflect"
	"testing"
)

func TestDeriveIdentity(t *testing.T) {
	id := DeriveIdentity("John Doe", "@domain.com")
	if id.Email != "john_doe@domain.com" {
		t.Fatalf("unexpected email: %s", id.Email)
	}
	if id.SAMLID != "John_Doe@domain.com" {
		t.Fatalf("unexpected SAML id: %s", id.SAMLID)
	}
	if id.FirstName != "John" || id.LastName != "Doe" {
		t.Fatalf("unexpected name split: %q %q", id.FirstName, id.LastName)
	}
}

func TestDeriveIdentityDeterministic(t *testing.T) {
	a := DeriveIdentity("Jane Ann Smith", "@company.com")
	b := DeriveIdentity("Jane Ann Smith", "@company.com")
	if a != b {
		t.Fatalf("derivation not deterministic: %+v vs %+v", a, b)
	}
	if a.Email != "jane_ann_smith@company.com" {
		t.Fatalf("unexpected email: %s", a.Email)
	}
	if a.LastName != "Ann Smith" {
		t.Fatalf("unexpected last name: %q", a.LastName)
	}
}

func TestDeriveIdentitySingleName(t *testing.T) {
	id := DeriveIdentity("Cher", "@domain.com")
	if id.FirstName != "Cher" || id.LastName != "" {
		t.Fatalf("unexpected name split: %q %q", id.FirstName, id.LastName)
	}
	if id.Email != "cher@domain.com" {
		t.Fatalf("unexpected email: %s", id.Email)
	}
}

func TestDeriveIdentityCollapsesWhitespace(t *testing.T) {
	id := DeriveIdentity("  John   Doe ", "@domain.com")
	if id.Email != "john_doe@domain.com" {
		t.Fatalf("unexpected email: %s", id.Email)
	}
	if id.FullName != "John Doe" {
		t.Fatalf("unexpected full name: %q", id.FullName)
	}
}

func TestSplitNames(t *testing.T) {
	got := SplitNames(" John Doe, Jane Smith ,,  Bob Johnson ")
	want := []string{"John Doe", "Jane Smith", "Bob Johnson"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if SplitNames("  ,  ") != nil {
		t.Fatalf("expected nil for blank input")
	}
}

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"company.com":  "@company.com",
		"@company.com": "@company.com",
		" company.com": "@company.com",
		"":             "",
	}
	for in, want := range cases {
		if got := NormalizeDomain(in); got != want {
			t.Fatalf("NormalizeDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
