package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/closetbyera/giftledger/internal/config"
	"github.com/closetbyera/giftledger/internal/db"
	"github.com/closetbyera/giftledger/internal/mfa"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/closetbyera/giftledger/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

func TestRouterServesHealthMetricsAndJSON404(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:app_router_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	reg := prometheus.NewRegistry()
	ledger, errLedger := newLedger(conn, reg, config.LedgerConfig{ConflictRetries: 1})
	if errLedger != nil {
		t.Fatalf("new ledger: %v", errLedger)
	}
	if _, errAgain := newLedger(conn, reg, config.LedgerConfig{}); errAgain == nil {
		t.Fatalf("expected duplicate metrics registration to fail")
	}

	jwtCfg := config.JWTConfig{Secret: "app-test", Expiry: time.Hour}
	router := newRouter(conn, jwtCfg, ledger, mfa.NewChallenges(mfa.NewMemoryStore()), reg)

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/healthz", status: http.StatusOK, body: `"atomic_redemption":false`},
		{path: "/metrics", status: http.StatusOK},
		{path: "/nowhere", status: http.StatusNotFound, body: `"error":"not found"`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.status {
			t.Fatalf("GET %s status = %d, want %d", tc.path, w.Code, tc.status)
		}
		if tc.body != "" && !strings.Contains(w.Body.String(), tc.body) {
			t.Fatalf("GET %s body = %s, want substring %s", tc.path, w.Body.String(), tc.body)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Fatalf("GET %s missing request id header", tc.path)
		}
	}
}

func TestCreateAdminCreatesThenPromotes(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	configPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("database:\n  dsn: %q\njwt:\n  secret: test\n", dbPath)
	if errWrite := os.WriteFile(configPath, []byte(yaml), 0o600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	t.Setenv("DATABASE_DSN", "")
	appCfg := config.AppConfig{ConfigPath: configPath}
	ctx := context.Background()

	if errCreate := CreateAdmin(ctx, appCfg, CreateAdminParams{Email: "Ops@ClosetByEra.com", Password: "first"}); errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
	if errPromote := CreateAdmin(ctx, appCfg, CreateAdminParams{Email: "ops@closetbyera.com", Password: "second", SuperAdmin: true}); errPromote != nil {
		t.Fatalf("promote admin: %v", errPromote)
	}
	if errMissing := CreateAdmin(ctx, appCfg, CreateAdminParams{Email: "x@y.z"}); errMissing == nil {
		t.Fatalf("expected error without password")
	}

	conn, errOpen := db.Open(dbPath)
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	var rows []models.Customer
	if errFind := conn.Find(&rows).Error; errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one account, got %d", len(rows))
	}
	if rows[0].Email != "ops@closetbyera.com" || rows[0].Role != models.RoleSuperAdmin {
		t.Fatalf("unexpected account: %+v", rows[0])
	}
	if !security.CheckPassword(rows[0].Password, "second") {
		t.Fatalf("expected password to be replaced on promotion")
	}
}
