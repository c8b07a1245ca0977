package permissions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// Definition describes one permission-gated admin route.
type Definition struct {
	Key    string
	Method string
	Path   string
	Label  string
	Module string
}

const adminPrefix = "/v0/admin"

var definitions = []Definition{
	def(http.MethodPost, "/gift-cards", "Issue gift card", "gift-cards"),
	def(http.MethodPost, "/gift-cards/batch", "Issue gift cards in batch", "gift-cards"),
	def(http.MethodGet, "/gift-cards", "List gift cards", "gift-cards"),
	def(http.MethodGet, "/gift-cards/:id", "View gift card", "gift-cards"),
	def(http.MethodGet, "/gift-cards/:id/usage", "View gift card usage", "gift-cards"),
	def(http.MethodPost, "/gift-cards/:id/deactivate", "Deactivate gift card", "gift-cards"),
	def(http.MethodGet, "/staff", "List staff", "staff"),
	def(http.MethodPut, "/staff/:id/role", "Change staff role", "staff"),
	def(http.MethodPut, "/staff/:id/permissions", "Change staff permissions", "staff"),
	def(http.MethodGet, "/permissions", "List permissions", "staff"),
	def(http.MethodGet, "/settings", "View settings", "settings"),
	def(http.MethodPut, "/settings/:key", "Change setting", "settings"),
}

func def(method, path, label, module string) Definition {
	full := adminPrefix + path
	return Definition{
		Key:    Key(method, full),
		Method: method,
		Path:   full,
		Label:  label,
		Module: module,
	}
}

// Key builds the permission key for a method and gin route path.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns a copy of every permission definition.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap indexes definitions by key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		out[d.Key] = d
	}
	return out
}

// NormalizePermissions trims, de-duplicates and sorts keys.
func NormalizePermissions(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// ValidatePermissions rejects unknown keys.
func ValidatePermissions(keys []string) error {
	known := DefinitionMap()
	for _, key := range keys {
		if _, ok := known[key]; !ok {
			return fmt.Errorf("permissions: unknown permission %q", key)
		}
	}
	return nil
}

// MarshalPermissions encodes keys for the customers.permissions column.
func MarshalPermissions(keys []string) (datatypes.JSON, error) {
	if keys == nil {
		keys = []string{}
	}
	raw, err := json.Marshal(keys)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// ParsePermissions decodes the customers.permissions column. Malformed values yield no permissions.
func ParsePermissions(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var keys []string
	if errUnmarshal := json.Unmarshal(raw, &keys); errUnmarshal != nil {
		return []string{}
	}
	return NormalizePermissions(keys)
}

// HasPermission reports whether key is granted.
func HasPermission(granted []string, key string) bool {
	for _, g := range granted {
		if g == key {
			return true
		}
	}
	return false
}
