package mfa

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// Lifetimes of pending MFA state.
const (
	TOTPSetupTTL      = 10 * time.Minute
	PasskeySessionTTL = 5 * time.Minute
)

// Challenges namespaces the store for the three MFA flows.
type Challenges struct {
	store Store
}

// NewChallenges wraps store.
func NewChallenges(store Store) *Challenges {
	return &Challenges{store: store}
}

func totpKey(customerID uint64) string { return fmt.Sprintf("totp:%d", customerID) }

func registrationKey(customerID uint64) string { return fmt.Sprintf("passkey-register:%d", customerID) }

func loginKey(email string) string { return "passkey-login:" + email }

// PutPendingTOTP remembers a secret awaiting confirmation.
func (c *Challenges) PutPendingTOTP(ctx context.Context, customerID uint64, secret string) error {
	return c.store.Set(ctx, totpKey(customerID), []byte(secret), TOTPSetupTTL)
}

// PendingTOTP returns the secret awaiting confirmation.
func (c *Challenges) PendingTOTP(ctx context.Context, customerID uint64) (string, bool, error) {
	value, ok, err := c.store.Get(ctx, totpKey(customerID))
	if err != nil || !ok {
		return "", false, err
	}
	return string(value), true, nil
}

// DropPendingTOTP forgets a pending secret.
func (c *Challenges) DropPendingTOTP(ctx context.Context, customerID uint64) error {
	return c.store.Delete(ctx, totpKey(customerID))
}

// PutRegistration stores an in-flight passkey registration.
func (c *Challenges) PutRegistration(ctx context.Context, customerID uint64, session webauthn.SessionData) error {
	return c.putSession(ctx, registrationKey(customerID), session)
}

// Registration returns an in-flight passkey registration.
func (c *Challenges) Registration(ctx context.Context, customerID uint64) (webauthn.SessionData, bool, error) {
	return c.session(ctx, registrationKey(customerID))
}

// DropRegistration forgets an in-flight passkey registration.
func (c *Challenges) DropRegistration(ctx context.Context, customerID uint64) error {
	return c.store.Delete(ctx, registrationKey(customerID))
}

// PutLogin stores an in-flight passkey login keyed by email.
func (c *Challenges) PutLogin(ctx context.Context, email string, session webauthn.SessionData) error {
	return c.putSession(ctx, loginKey(email), session)
}

// Login returns an in-flight passkey login.
func (c *Challenges) Login(ctx context.Context, email string) (webauthn.SessionData, bool, error) {
	return c.session(ctx, loginKey(email))
}

// DropLogin forgets an in-flight passkey login.
func (c *Challenges) DropLogin(ctx context.Context, email string) error {
	return c.store.Delete(ctx, loginKey(email))
}

func (c *Challenges) putSession(ctx context.Context, key string, session webauthn.SessionData) error {
	ttl := PasskeySessionTTL
	if !session.Expires.IsZero() {
		if remaining := time.Until(session.Expires); remaining > 0 {
			ttl = remaining
		}
	}
	raw, errMarshal := json.Marshal(session)
	if errMarshal != nil {
		return fmt.Errorf("mfa: encode session: %w", errMarshal)
	}
	return c.store.Set(ctx, key, raw, ttl)
}

func (c *Challenges) session(ctx context.Context, key string) (webauthn.SessionData, bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return webauthn.SessionData{}, false, err
	}
	var session webauthn.SessionData
	if errUnmarshal := json.Unmarshal(raw, &session); errUnmarshal != nil {
		return webauthn.SessionData{}, false, fmt.Errorf("mfa: decode session: %w", errUnmarshal)
	}
	return session, true, nil
}
