package permissions

import (
	"testing"

	"gorm.io/datatypes"
)

func TestDefinitionMapIncludesGiftCardPermissions(t *testing.T) {
	t.Parallel()

	definitionMap := DefinitionMap()
	requiredKeys := []string{
		"POST /v0/admin/gift-cards",
		"POST /v0/admin/gift-cards/batch",
		"GET /v0/admin/gift-cards",
		"GET /v0/admin/gift-cards/:id",
		"GET /v0/admin/gift-cards/:id/usage",
		"POST /v0/admin/gift-cards/:id/deactivate",
	}

	for _, key := range requiredKeys {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			if _, ok := definitionMap[key]; !ok {
				t.Fatalf("DefinitionMap() missing permission key %q", key)
			}
		})
	}
}

func TestDefinitionKeysAreUnique(t *testing.T) {
	t.Parallel()

	if got, want := len(DefinitionMap()), len(Definitions()); got != want {
		t.Fatalf("DefinitionMap() has %d keys for %d definitions", got, want)
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	t.Parallel()

	keys := NormalizePermissions([]string{" GET /v0/admin/gift-cards", "", "GET /v0/admin/gift-cards", "GET /v0/admin/staff"})
	if len(keys) != 2 || keys[0] != "GET /v0/admin/gift-cards" || keys[1] != "GET /v0/admin/staff" {
		t.Fatalf("NormalizePermissions() = %v", keys)
	}
	if err := ValidatePermissions(keys); err != nil {
		t.Fatalf("ValidatePermissions() error = %v", err)
	}
	if err := ValidatePermissions([]string{"DELETE /v0/admin/gift-cards/:id"}); err == nil {
		t.Fatalf("expected unknown permission to be rejected")
	}
}

func TestMarshalAndParse(t *testing.T) {
	t.Parallel()

	raw, err := MarshalPermissions(nil)
	if err != nil {
		t.Fatalf("MarshalPermissions() error = %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("MarshalPermissions(nil) = %s", raw)
	}

	raw, err = MarshalPermissions([]string{"GET /v0/admin/staff"})
	if err != nil {
		t.Fatalf("MarshalPermissions() error = %v", err)
	}
	parsed := ParsePermissions(raw)
	if !HasPermission(parsed, "GET /v0/admin/staff") || HasPermission(parsed, "GET /v0/admin/settings") {
		t.Fatalf("ParsePermissions() = %v", parsed)
	}
	if got := ParsePermissions(datatypes.JSON(`{"bad":true}`)); len(got) != 0 {
		t.Fatalf("expected malformed permissions to parse empty, got %v", got)
	}
}
