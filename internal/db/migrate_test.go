package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/closetbyera/giftledger/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestMigrateSQLiteLedgerTables(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{"customers", "gift_cards", "gift_card_usage", "settings"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	for _, column := range []string{"code", "initial_value", "balance", "is_active", "expires_at", "deactivated_at"} {
		if !conn.Migrator().HasColumn(&models.GiftCard{}, column) {
			t.Fatalf("gift_cards missing column %s", column)
		}
	}
	if !conn.Migrator().HasIndex(&models.GiftCard{}, "Code") {
		t.Fatalf("gift_cards missing unique code index")
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	for i := 0; i < 2; i++ {
		if errMigrate := Migrate(conn); errMigrate != nil {
			t.Fatalf("migrate run %d: %v", i+1, errMigrate)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	first := models.GiftCard{Code: "AAAA-BBBB-CCCC", InitialValue: 10, Balance: 10, IsActive: true}
	if errCreate := conn.Create(&first).Error; errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	dup := models.GiftCard{Code: "AAAA-BBBB-CCCC", InitialValue: 10, Balance: 10, IsActive: true}
	errDup := conn.Create(&dup).Error
	if !IsUniqueViolation(errDup) {
		t.Fatalf("expected unique violation, got %v", errDup)
	}

	if !IsUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatalf("expected pg unique violation detected")
	}
	if IsUniqueViolation(errors.New("boom")) || IsUniqueViolation(nil) {
		t.Fatalf("unexpected unique violation match")
	}
}

func TestIsUndefinedFunction(t *testing.T) {
	if !IsUndefinedFunction(fmt.Errorf("call: %w", &pgconn.PgError{Code: "42883"})) {
		t.Fatalf("expected undefined function detected")
	}
	if IsUndefinedFunction(errors.New("no such function")) {
		t.Fatalf("plain errors must not match")
	}
}

func TestDetectDialectFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u@localhost/db":    DialectPostgres,
		"host=localhost dbname=ledger": DialectPostgres,
		"file:ledger.db":               DialectSQLite,
		"sqlite://data/ledger.db":      DialectSQLite,
		"ledger.db":                    DialectSQLite,
	}
	for dsn, want := range cases {
		got, err := detectDialectFromDSN(dsn)
		if err != nil {
			t.Fatalf("detect %q: %v", dsn, err)
		}
		if got != want {
			t.Fatalf("detect %q = %q, want %q", dsn, got, want)
		}
	}
	if _, err := detectDialectFromDSN("mysql://root@localhost/db"); err == nil {
		t.Fatalf("expected unsupported dsn error")
	}
}

func TestSQLiteDSNHelpers(t *testing.T) {
	if got := normalizeSQLiteDSN("sqlite://data/ledger.db"); got != "file:data/ledger.db" {
		t.Fatalf("normalize = %q", got)
	}
	withParams := ensureSQLiteParams("file:data/ledger.db")
	if withParams != "file:data/ledger.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)" {
		t.Fatalf("ensure params = %q", withParams)
	}
	if again := ensureSQLiteParams(withParams); again != withParams {
		t.Fatalf("params must not be duplicated: %q", again)
	}
	if got := sqlitePathFromDSN(withParams); got != "data/ledger.db" {
		t.Fatalf("path = %q", got)
	}
	if got := sqlitePathFromDSN("file:x?mode=memory&cache=shared"); got != "" {
		t.Fatalf("memory dsn should have no path, got %q", got)
	}
}
