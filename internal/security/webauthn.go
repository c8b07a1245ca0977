package security

import (
	"errors"
	"net/url"
	"strings"

	"github.com/closetbyera/giftledger/internal/settings"
	"github.com/go-webauthn/webauthn/webauthn"
)

const webAuthnRPName = "Closet By Era Back Office"

// ErrWebAuthnNotConfigured is returned until at least one passkey origin is set.
var ErrWebAuthnNotConfigured = errors.New("security: webauthn origin not configured")

// NewWebAuthn builds a WebAuthn configuration from DB-backed settings.
func NewWebAuthn() (*webauthn.WebAuthn, error) {
	rpName := settings.StringOr(settings.WebAuthnRPNameKey, webAuthnRPName)

	origins := settings.Strings(settings.WebAuthnOriginsKey)
	if len(origins) == 0 {
		if override := settings.String(settings.WebAuthnOriginKey); override != "" {
			origins = []string{override}
		}
	}
	if len(origins) == 0 {
		return nil, ErrWebAuthnNotConfigured
	}

	rpID := settings.String(settings.WebAuthnRPIDKey)
	if rpID == "" {
		rpID = deriveRPIDFromOrigins(origins)
	}
	if rpID == "" {
		return nil, ErrWebAuthnNotConfigured
	}

	return webauthn.New(&webauthn.Config{
		RPID:          rpID,
		RPDisplayName: rpName,
		RPOrigins:     origins,
	})
}

// deriveRPIDFromOrigins extracts an RP ID from the configured origins.
func deriveRPIDFromOrigins(origins []string) string {
	for _, origin := range origins {
		parsed, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || parsed.Host == "" {
			continue
		}
		if host := strings.TrimSpace(parsed.Hostname()); host != "" {
			return host
		}
	}
	return ""
}
