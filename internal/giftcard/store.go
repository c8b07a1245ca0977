package giftcard

import (
	"context"
	"time"

	"github.com/closetbyera/giftledger/internal/models"
)

// AtomicResult is the row returned by the atomic redemption procedure.
type AtomicResult struct {
	Success    bool
	Message    string
	NewBalance int64
}

// ListFilter narrows card listings.
type ListFilter struct {
	Code     string
	Active   *bool
	Page     int
	PageSize int
}

// UsageFilter narrows usage listings. Zero fields match everything.
type UsageFilter struct {
	GiftCardID uint64
	OrderIDs   []string
	RedeemedBy *uint64
}

// Redemption is one request to debit a card.
type Redemption struct {
	Code       string
	Amount     int64
	OrderID    string
	RedeemedBy *uint64
}

// Store is the datastore collaborator of the ledger.
//
// CreateCard and CreateCards return ErrDuplicateCode on a code collision.
// FindByCode, FindByID and Deactivate return ErrCardNotFound for unknown cards.
// CompareAndSwapBalance updates an active card only while its balance still
// equals expected and reports whether a row changed. RedeemAtomic returns
// ErrAtomicUnavailable when the procedure cannot be used.
type Store interface {
	CreateCard(ctx context.Context, card *models.GiftCard) error
	CreateCards(ctx context.Context, cards []*models.GiftCard) error
	FindByCode(ctx context.Context, code string) (*models.GiftCard, error)
	FindByID(ctx context.Context, id uint64) (*models.GiftCard, error)
	ListCards(ctx context.Context, filter ListFilter) ([]models.GiftCard, int64, error)
	CompareAndSwapBalance(ctx context.Context, id uint64, expected, next int64) (bool, error)
	AppendUsage(ctx context.Context, usage *models.GiftCardUsage) error
	ListUsage(ctx context.Context, filter UsageFilter) ([]models.GiftCardUsage, error)
	Deactivate(ctx context.Context, id uint64, at time.Time) error
	RedeemAtomic(ctx context.Context, req Redemption) (AtomicResult, error)
}
