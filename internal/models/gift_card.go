package models

import "time"

// GiftCard represents an issued gift card and its remaining balance.
type GiftCard struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code         string `gorm:"type:text;not null;uniqueIndex"` // Human-readable voucher code.
	InitialValue int64  `gorm:"not null"`                       // Value at issuance, whole currency units.
	Balance      int64  `gorm:"not null;default:0"`             // Remaining balance, whole currency units.

	IsActive  bool       `gorm:"not null;default:true"` // Cleared by deactivation, never set again.
	ExpiresAt *time.Time `gorm:"index"`                 // Expiration time, if any.

	IssuedBy *uint64 `gorm:"index"` // Admin customer that issued the card.

	CreatedAt     time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	DeactivatedAt *time.Time // First deactivation time.
}

// TableName pins the table name shared with the redemption procedure.
func (GiftCard) TableName() string { return "gift_cards" }

// Expired reports whether the card is past its expiry at now.
func (c *GiftCard) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}
