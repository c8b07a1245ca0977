package settings

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// String reads a string setting, or "" when unset.
func String(key string) string {
	raw, ok := DBConfigValue(key)
	if !ok {
		return ""
	}
	return parseString(raw)
}

// StringOr reads a string setting with a fallback.
func StringOr(key, fallback string) string {
	if v := String(key); v != "" {
		return v
	}
	return fallback
}

// Strings reads a string list setting; a single string is returned as one element.
func Strings(key string) []string {
	raw, ok := DBConfigValue(key)
	if !ok {
		return nil
	}
	return parseStrings(raw)
}

// Int reads an integer setting with a fallback for missing or malformed values.
func Int(key string, fallback int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	if v, okParse := parseInt(raw); okParse {
		return v
	}
	return fallback
}

// parseString extracts a string from a JSON value, unwrapping {"value": ...}.
func parseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		return strings.TrimSpace(s)
	}
	if inner, ok := unwrapValue(raw); ok {
		return parseString(inner)
	}
	return ""
}

func parseStrings(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if errUnmarshal := json.Unmarshal(raw, &values); errUnmarshal == nil {
		out := make([]string, 0, len(values))
		for _, value := range values {
			if value = strings.TrimSpace(value); value != "" {
				out = append(out, value)
			}
		}
		return out
	}
	if single := parseString(raw); single != "" {
		return []string{single}
	}
	if inner, ok := unwrapValue(raw); ok {
		return parseStrings(inner)
	}
	return nil
}

func parseInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil {
		if v, errConv := strconv.Atoi(n.String()); errConv == nil {
			return v, true
		}
	}
	if s := parseString(raw); s != "" {
		if v, errConv := strconv.Atoi(s); errConv == nil {
			return v, true
		}
	}
	if inner, ok := unwrapValue(raw); ok {
		return parseInt(inner)
	}
	return 0, false
}

func unwrapValue(raw json.RawMessage) (json.RawMessage, bool) {
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal != nil || len(wrapper.Value) == 0 {
		return nil, false
	}
	return wrapper.Value, true
}
