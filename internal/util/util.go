package util

import (
	"net/url"
	"strings"
)

// MaskCode obscures a gift card code for logs, keeping the first and last group.
// Codes that are not in grouped form keep only their first and last characters.
func MaskCode(code string) string {
	code = strings.TrimSpace(code)
	if groups := strings.Split(code, "-"); len(groups) >= 3 {
		for i := 1; i < len(groups)-1; i++ {
			groups[i] = strings.Repeat("*", len(groups[i]))
		}
		return strings.Join(groups, "-")
	}
	switch {
	case len(code) > 8:
		return code[:4] + "..." + code[len(code)-4:]
	case len(code) > 4:
		return code[:2] + "..." + code[len(code)-2:]
	case len(code) > 2:
		return code[:1] + "..." + code[len(code)-1:]
	}
	return code
}

// MaskSensitiveQuery masks secret-bearing parameters, such as gift card codes
// and tokens, within a raw query string.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		if part == "" {
			continue
		}
		keyPart, valuePart, _ := strings.Cut(part, "=")
		decodedKey, err := url.QueryUnescape(keyPart)
		if err != nil {
			decodedKey = keyPart
		}
		if !shouldMaskQueryParam(decodedKey) {
			continue
		}
		decodedValue, err := url.QueryUnescape(valuePart)
		if err != nil {
			decodedValue = valuePart
		}
		parts[i] = keyPart + "=" + url.QueryEscape(MaskCode(decodedValue))
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}

func shouldMaskQueryParam(key string) bool {
	key = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(key)), "[]")
	if key == "" {
		return false
	}
	if key == "code" || strings.HasSuffix(key, "_code") {
		return true
	}
	return strings.Contains(key, "token") || strings.Contains(key, "secret") || strings.Contains(key, "password")
}
