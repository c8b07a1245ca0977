package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(body), 0o644); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadParsesSectionsAndDefaults(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REDIS_ADDR", "")
	path := writeConfig(t, `
database:
  dsn: "file:ledger.db"
jwt:
  secret: "s3cret"
  expiry: "2h"
ledger:
  conflict-retries: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.DSN != "file:ledger.db" {
		t.Fatalf("unexpected dsn %q", cfg.Database.DSN)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Fatalf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Fatalf("expected default log level, got %q", cfg.Log.Level)
	}
	if cfg.Ledger.ConflictRetries != 2 {
		t.Fatalf("expected 2 conflict retries, got %d", cfg.Ledger.ConflictRetries)
	}
	jwtCfg, errJWT := cfg.JWTConfig()
	if errJWT != nil {
		t.Fatalf("jwt config: %v", errJWT)
	}
	if jwtCfg.Secret != "s3cret" || jwtCfg.Expiry != 2*time.Hour {
		t.Fatalf("unexpected jwt config %+v", jwtCfg)
	}
}

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://ledger@localhost/ledger")
	t.Setenv("JWT_SECRET", "env-secret")

	path := filepath.Join(t.TempDir(), "absent.yaml")
	dsn, err := LoadDatabaseDSN(path)
	if err != nil {
		t.Fatalf("load dsn: %v", err)
	}
	if dsn != "postgres://ledger@localhost/ledger" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	jwtCfg, errJWT := LoadJWTConfig(path)
	if errJWT != nil {
		t.Fatalf("load jwt: %v", errJWT)
	}
	if jwtCfg.Expiry != DefaultJWTExpiry {
		t.Fatalf("expected default expiry, got %s", jwtCfg.Expiry)
	}
}

func TestLoadDatabaseDSNMissing(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")

	if _, err := LoadDatabaseDSN(path); !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("expected ErrMissingDSN, got %v", err)
	}
}

func TestJWTConfigRejectsBadExpiry(t *testing.T) {
	cfg := &Config{JWT: JWTFileConfig{Secret: "x", Expiry: "soon"}}
	if _, err := cfg.JWTConfig(); err == nil {
		t.Fatalf("expected error for invalid expiry")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("LEDGER_CONFIG", "")
	if got := ResolveConfigPath(""); got != DefaultConfigPath {
		t.Fatalf("expected default path, got %q", got)
	}
	t.Setenv("LEDGER_CONFIG", "/etc/ledger.yaml")
	if got := ResolveConfigPath(""); got != "/etc/ledger.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
	if got := ResolveConfigPath(" ./local.yaml "); got != "./local.yaml" {
		t.Fatalf("expected flag path, got %q", got)
	}
}
