package mfa

import (
	"context"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || string(value) != "v" {
		t.Fatalf("get: value=%q ok=%v err=%v", value, ok, err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ = store.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemoryStoreSweepsUnreadEntries(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, key, []byte(key), time.Minute); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if err := store.Set(ctx, "long", []byte("x"), time.Hour); err != nil {
		t.Fatalf("set long: %v", err)
	}

	now = now.Add(5 * time.Minute)
	if err := store.Set(ctx, "fresh", []byte("y"), time.Minute); err != nil {
		t.Fatalf("set fresh: %v", err)
	}
	if len(store.items) != 2 {
		t.Fatalf("expected expired entries to be swept, have %d", len(store.items))
	}
	if _, ok, _ := store.Get(ctx, "long"); !ok {
		t.Fatalf("unexpired entry was swept")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("v"), time.Minute)
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to be gone")
	}
}

func TestChallengesRoundTrip(t *testing.T) {
	challenges := NewChallenges(NewMemoryStore())
	ctx := context.Background()

	if err := challenges.PutPendingTOTP(ctx, 7, "SECRET"); err != nil {
		t.Fatalf("put totp: %v", err)
	}
	secret, ok, err := challenges.PendingTOTP(ctx, 7)
	if err != nil || !ok || secret != "SECRET" {
		t.Fatalf("pending totp: %q %v %v", secret, ok, err)
	}
	if _, ok, _ = challenges.PendingTOTP(ctx, 8); ok {
		t.Fatalf("secrets must be keyed per customer")
	}
	_ = challenges.DropPendingTOTP(ctx, 7)
	if _, ok, _ = challenges.PendingTOTP(ctx, 7); ok {
		t.Fatalf("expected secret to be dropped")
	}

	session := webauthn.SessionData{Challenge: "abc", UserID: []byte{0, 0, 0, 7}}
	if err = challenges.PutLogin(ctx, "ops@closetbyera.com", session); err != nil {
		t.Fatalf("put login: %v", err)
	}
	got, ok, err := challenges.Login(ctx, "ops@closetbyera.com")
	if err != nil || !ok || got.Challenge != "abc" {
		t.Fatalf("login session: %+v %v %v", got, ok, err)
	}
	if _, ok, _ = challenges.Registration(ctx, 7); ok {
		t.Fatalf("login and registration sessions must not collide")
	}
}

func TestRedisStoreReportsConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer func() { _ = client.Close() }()

	store := NewRedisStore(client, "")
	if store.prefix != defaultKeyPrefix {
		t.Fatalf("prefix = %q", store.prefix)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, ok, err := store.Get(ctx, "k"); err == nil || ok {
		t.Fatalf("expected unreachable redis to fail, ok=%v err=%v", ok, err)
	}
}
