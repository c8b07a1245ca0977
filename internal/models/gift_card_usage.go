package models

import "time"

// GiftCardUsage is one append-only redemption entry against a gift card.
type GiftCardUsage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	GiftCardID uint64    `gorm:"not null;index"`           // Redeemed card.
	GiftCard   *GiftCard `gorm:"foreignKey:GiftCardID"`    // Redeemed card record.
	OrderID    string    `gorm:"type:text;not null;index"` // Order the redemption applies to.
	AmountUsed int64     `gorm:"not null"`                 // Deducted amount, whole currency units.
	RedeemedBy *uint64   `gorm:"index"`                    // Storefront customer that redeemed, nil for other callers.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName pins the table name shared with the redemption procedure.
func (GiftCardUsage) TableName() string { return "gift_card_usage" }
