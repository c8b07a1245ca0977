package authz

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/closetbyera/giftledger/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:authz_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Customer{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedCustomer(t *testing.T, conn *gorm.DB, email, role string, disabled bool) uint64 {
	t.Helper()

	row := models.Customer{Email: email, Password: "x", Role: role, Disabled: disabled}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("create customer: %v", errCreate)
	}
	return row.ID
}

func TestResolveRole(t *testing.T) {
	conn := openTestDB(t)
	guard := NewGuard(conn)
	ctx := context.Background()

	shopperID := seedCustomer(t, conn, "shopper@example.com", models.RoleCustomer, false)
	adminID := seedCustomer(t, conn, "admin@example.com", models.RoleAdmin, false)
	superID := seedCustomer(t, conn, "root@example.com", models.RoleSuperAdmin, false)
	disabledID := seedCustomer(t, conn, "gone@example.com", models.RoleAdmin, true)

	cases := []struct {
		name string
		id   *Identity
		want Role
	}{
		{name: "nil identity", id: nil, want: RoleAnonymous},
		{name: "zero identity", id: &Identity{}, want: RoleAnonymous},
		{name: "unknown customer", id: &Identity{CustomerID: 9999}, want: RoleAnonymous},
		{name: "customer", id: &Identity{CustomerID: shopperID}, want: RoleCustomer},
		{name: "admin", id: &Identity{CustomerID: adminID}, want: RoleAdmin},
		{name: "super admin", id: &Identity{CustomerID: superID}, want: RoleSuperAdmin},
		{name: "disabled admin", id: &Identity{CustomerID: disabledID}, want: RoleAnonymous},
	}
	for _, tc := range cases {
		got, errRole := guard.ResolveRole(ctx, tc.id)
		if errRole != nil {
			t.Fatalf("%s: resolve: %v", tc.name, errRole)
		}
		if got != tc.want {
			t.Fatalf("%s: role = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	conn := openTestDB(t)
	guard := NewGuard(conn)
	ctx := context.Background()

	shopperID := seedCustomer(t, conn, "shopper@example.com", models.RoleCustomer, false)
	adminID := seedCustomer(t, conn, "admin@example.com", models.RoleAdmin, false)
	superID := seedCustomer(t, conn, "root@example.com", models.RoleSuperAdmin, false)

	if err := guard.RequireAdmin(ctx, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous: expected ErrUnauthorized, got %v", err)
	}
	if err := guard.RequireAdmin(ctx, &Identity{CustomerID: shopperID}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("customer: expected ErrUnauthorized, got %v", err)
	}
	if err := guard.RequireAdmin(ctx, &Identity{CustomerID: adminID}); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if err := guard.RequireAdmin(ctx, &Identity{CustomerID: superID}); err != nil {
		t.Fatalf("super admin: %v", err)
	}
}
