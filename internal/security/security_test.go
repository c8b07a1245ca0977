package security

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/closetbyera/giftledger/internal/settings"
)

func TestTokenRoundTripRequiresScope(t *testing.T) {
	token, err := GenerateToken("secret", ScopeBackOffice, 7, "ops@closetbyera.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, errParse := ParseToken("secret", ScopeBackOffice, token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.CustomerID != 7 || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, errScope := ParseToken("secret", ScopeStorefront, token); !errors.Is(errScope, ErrInvalidToken) {
		t.Fatalf("expected scope mismatch to be rejected, got %v", errScope)
	}
	if _, errSecret := ParseToken("other", ScopeBackOffice, token); !errors.Is(errSecret, ErrInvalidToken) {
		t.Fatalf("expected wrong secret to be rejected, got %v", errSecret)
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", ScopeStorefront, 1, "a@b.c", "customer", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, errParse := ParseToken("secret", ScopeStorefront, token); !errors.Is(errParse, ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", errParse)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "hunter2") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "hunter3") {
		t.Fatalf("expected mismatch")
	}
}

func TestNewWebAuthnDerivesRPIDFromOrigins(t *testing.T) {
	settings.StoreDBConfig(time.Now(), map[string]json.RawMessage{
		settings.WebAuthnOriginsKey: json.RawMessage(`["https://admin.closetbyera.test"]`),
	})
	defer settings.StoreDBConfig(time.Time{}, nil)

	w, err := NewWebAuthn()
	if err != nil {
		t.Fatalf("new webauthn: %v", err)
	}
	if w.Config.RPID != "admin.closetbyera.test" {
		t.Fatalf("unexpected rp id %q", w.Config.RPID)
	}
}

func TestNewWebAuthnRequiresOrigin(t *testing.T) {
	settings.StoreDBConfig(time.Time{}, nil)
	if _, err := NewWebAuthn(); !errors.Is(err, ErrWebAuthnNotConfigured) {
		t.Fatalf("expected ErrWebAuthnNotConfigured, got %v", err)
	}

	settings.StoreDBConfig(time.Now(), map[string]json.RawMessage{
		settings.WebAuthnOriginKey: json.RawMessage(`"https://ops.closetbyera.test"`),
		settings.WebAuthnRPIDKey:   json.RawMessage(`"closetbyera.test"`),
	})
	defer settings.StoreDBConfig(time.Time{}, nil)

	w, err := NewWebAuthn()
	if err != nil {
		t.Fatalf("new webauthn: %v", err)
	}
	if w.Config.RPID != "closetbyera.test" || len(w.Config.RPOrigins) != 1 {
		t.Fatalf("unexpected config %+v", w.Config)
	}
}
