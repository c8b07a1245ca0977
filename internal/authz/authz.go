// Package authz resolves caller roles from the customers profile table and
// gates back-office ledger operations to admin callers.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/closetbyera/giftledger/internal/models"
	"gorm.io/gorm"
)

// ErrUnauthorized is returned when the caller lacks the admin role.
var ErrUnauthorized = errors.New("authz: unauthorized")

// Role is the resolved role of a caller.
type Role string

// Resolved roles.
const (
	RoleAnonymous  Role = "anonymous"
	RoleCustomer   Role = Role(models.RoleCustomer)
	RoleAdmin      Role = Role(models.RoleAdmin)
	RoleSuperAdmin Role = Role(models.RoleSuperAdmin)
)

// IsAdmin reports whether the role may run back-office ledger operations.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Identity is the authenticated caller as established by the session layer.
// A nil Identity or a zero CustomerID is an anonymous caller.
type Identity struct {
	CustomerID uint64
}

// Guard looks callers up in the customers table.
type Guard struct {
	db *gorm.DB
}

// NewGuard builds a guard backed by db.
func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// ResolveRole returns the caller's role. Unknown or disabled customers are anonymous.
func (g *Guard) ResolveRole(ctx context.Context, id *Identity) (Role, error) {
	if id == nil || id.CustomerID == 0 {
		return RoleAnonymous, nil
	}
	var row models.Customer
	errFind := g.db.WithContext(ctx).
		Select("id", "role", "disabled").
		Where("id = ?", id.CustomerID).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return RoleAnonymous, nil
		}
		return RoleAnonymous, fmt.Errorf("authz: resolve role: %w", errFind)
	}
	if row.Disabled {
		return RoleAnonymous, nil
	}
	switch Role(row.Role) {
	case RoleAdmin, RoleSuperAdmin:
		return Role(row.Role), nil
	default:
		return RoleCustomer, nil
	}
}

// RequireAdmin returns ErrUnauthorized unless the caller resolves to an admin role.
func (g *Guard) RequireAdmin(ctx context.Context, id *Identity) error {
	role, errRole := g.ResolveRole(ctx, id)
	if errRole != nil {
		return errRole
	}
	if !role.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}
