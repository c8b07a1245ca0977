package models

import (
	"time"

	"gorm.io/datatypes"
)

// Customer roles stored in the profile table.
const (
	// RoleCustomer is a storefront shopper.
	RoleCustomer = "customer"
	// RoleAdmin is a back-office operator.
	RoleAdmin = "admin"
	// RoleSuperAdmin is a back-office operator with every permission.
	RoleSuperAdmin = "super_admin"
)

// Customer is a storefront account; back-office staff are customers with an admin role.
type Customer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Name     string `gorm:"type:text"`                      // Display name.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Role        string         `gorm:"type:text;not null;default:'customer';index"` // Profile role.
	Permissions datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`            // Admin permission keys in JSON.
	Disabled    bool           `gorm:"not null;default:false"`                      // Blocks sign in when true.

	TOTPSecret            string  `gorm:"type:text"`    // TOTP secret for MFA.
	PasskeyID             []byte  `gorm:"type:bytea"`   // WebAuthn credential ID.
	PasskeyPublicKey      []byte  `gorm:"type:bytea"`   // WebAuthn public key bytes.
	PasskeySignCount      *uint32 `gorm:"type:bigint"`  // WebAuthn signature counter.
	PasskeyBackupEligible *bool   `gorm:"type:boolean"` // WebAuthn backup eligibility flag.
	PasskeyBackupState    *bool   `gorm:"type:boolean"` // WebAuthn backup state flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsStaff reports whether the role grants back-office access.
func (c *Customer) IsStaff() bool {
	return c.Role == RoleAdmin || c.Role == RoleSuperAdmin
}

// MFAEnabled reports whether any second factor is registered.
func (c *Customer) MFAEnabled() bool {
	return c.TOTPSecret != "" || (len(c.PasskeyID) > 0 && len(c.PasskeyPublicKey) > 0)
}
